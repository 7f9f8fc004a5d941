package storybook

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultFlipDelay is the length of a page-turn animation.
const DefaultFlipDelay = 600 * time.Millisecond

// State is a read-only snapshot of the navigation record.
type State struct {
	CurrentIndex     int       `json:"current_index"`
	TotalSpreads     int       `json:"total_spreads"`
	Transitioning    bool      `json:"transitioning"`
	Direction        Direction `json:"direction,omitempty"`
	HighWaterMark    int       `json:"high_water_mark"`
	ReadingCompleted bool      `json:"reading_completed"`
}

// Accessible reports whether a direct jump to index is allowed from s.
// Indexes outside [0, TotalSpreads) never are.
func (s State) Accessible(index int) bool {
	if index < 0 || index >= s.TotalSpreads {
		return false
	}
	return s.ReadingCompleted || index <= s.HighWaterMark
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithFlipDelay sets the page-turn delay.
func WithFlipDelay(d time.Duration) Option {
	return func(n *Navigator) {
		if d >= 0 {
			n.flipDelay = d
		}
	}
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(n *Navigator) {
		if s != nil {
			n.scheduler = s
		}
	}
}

// WithLogger sets the logger used to report rejected jumps.
func WithLogger(l *slog.Logger) Option {
	return func(n *Navigator) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(n *Navigator) {
		if o != nil {
			n.observers = append(n.observers, o)
		}
	}
}

// Navigator owns the position within a book's spreads for one reading
// session. All intents are guarded; a request that fails its guard is a
// silent no-op and reports false.
type Navigator struct {
	mu sync.Mutex

	total         int
	current       int
	transitioning bool
	direction     Direction
	highWater     int
	completed     bool
	closed        bool

	// pending is the outstanding second phase of a turn; gen identifies
	// which turn it belongs to.
	pending Timer
	gen     uint64

	flipDelay time.Duration
	scheduler Scheduler
	logger    *slog.Logger

	// emitMu keeps observer delivery in the same order as state changes.
	emitMu    sync.Mutex
	observers []Observer
}

// New creates a navigator positioned on the cover of a book with pageCount
// story pages.
func New(pageCount int, opts ...Option) *Navigator {
	n := &Navigator{
		total:     TotalSpreads(pageCount),
		direction: Forward,
		flipDelay: DefaultFlipDelay,
		scheduler: RealScheduler{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// GoNext starts a forward page turn. The index advances once the flip delay
// elapses.
func (n *Navigator) GoNext() bool {
	return n.startTurn(Forward)
}

// GoPrev starts a backward page turn. It never moves the watermark.
func (n *Navigator) GoPrev() bool {
	return n.startTurn(Backward)
}

func (n *Navigator) startTurn(dir Direction) bool {
	n.mu.Lock()
	if n.closed || n.transitioning {
		n.mu.Unlock()
		return false
	}
	to := n.current + 1
	if dir == Backward {
		to = n.current - 1
	}
	if to < 0 || to > n.total-1 {
		n.mu.Unlock()
		return false
	}

	n.transitioning = true
	n.direction = dir
	n.gen++
	gen := n.gen
	from := n.current
	n.pending = n.scheduler.AfterFunc(n.flipDelay, func() { n.finishTurn(gen) })

	evt := Event{Type: EventTransitionStarted, From: from, To: to, Direction: dir, State: n.snapshotLocked()}
	n.emitAndUnlock(evt)
	return true
}

func (n *Navigator) finishTurn(gen uint64) {
	n.mu.Lock()
	if n.closed || !n.transitioning || gen != n.gen {
		n.mu.Unlock()
		return
	}

	from := n.current
	unlocked := false
	if n.direction == Forward {
		n.current++
		if n.current > n.highWater {
			n.highWater = n.current
		}
		if n.current == n.total-1 && !n.completed {
			n.completed = true
			unlocked = true
		}
	} else {
		n.current--
	}
	n.transitioning = false
	n.pending = nil

	snap := n.snapshotLocked()
	events := []Event{{Type: EventTransitionFinished, From: from, To: n.current, Direction: n.direction, State: snap}}
	if unlocked {
		events = append(events, Event{Type: EventUnlocked, From: from, To: n.current, Direction: n.direction, State: snap})
	}
	n.emitAndUnlock(events...)
}

// JumpTo moves directly to target without an animated turn. The target must
// differ from the current spread and be accessible.
func (n *Navigator) JumpTo(target int) bool {
	n.mu.Lock()
	if n.closed || n.transitioning || target == n.current {
		n.mu.Unlock()
		return false
	}
	if target < 0 || target > n.total-1 || !n.accessibleLocked(target) {
		snap := n.snapshotLocked()
		n.logger.Warn("rejected jump to inaccessible spread",
			"target", target,
			"current", n.current,
			"high_water_mark", n.highWater,
			"total_spreads", n.total)
		n.emitAndUnlock(Event{Type: EventJumpRejected, From: snap.CurrentIndex, To: target, State: snap})
		return false
	}

	from := n.current
	n.current = target
	n.emitAndUnlock(Event{Type: EventJumped, From: from, To: target, State: n.snapshotLocked()})
	return true
}

// HandleKey applies a keyboard event. Navigation keys are swallowed while a
// turn is in flight. IntentClose is returned to the caller, which owns the
// session lifetime; the navigator does not close itself.
func (n *Navigator) HandleKey(key string) (Intent, bool) {
	intent := KeyIntent(key)
	if intent == IntentNone {
		return IntentNone, false
	}
	if n.IsTransitioning() {
		return intent, false
	}
	switch intent {
	case IntentNext:
		return intent, n.GoNext()
	case IntentPrev:
		return intent, n.GoPrev()
	case IntentClose:
		return intent, true
	}
	return IntentNone, false
}

// Accessible reports whether index may be reached by a direct jump.
func (n *Navigator) Accessible(index int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return index >= 0 && index < n.total && n.accessibleLocked(index)
}

func (n *Navigator) accessibleLocked(index int) bool {
	return n.completed || index <= n.highWater
}

// IsAtStart reports whether the cover is displayed.
func (n *Navigator) IsAtStart() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current == 0
}

// IsAtEnd reports whether the end spread is displayed.
func (n *Navigator) IsAtEnd() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current == n.total-1
}

// IsTransitioning reports whether a page turn is in flight.
func (n *Navigator) IsTransitioning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.transitioning
}

// State returns a snapshot of the navigation record.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snapshotLocked()
}

// Close cancels any pending turn. Every later intent is a no-op.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	if n.pending != nil {
		n.pending.Stop()
		n.pending = nil
	}
}

// Closed reports whether Close has been called.
func (n *Navigator) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

func (n *Navigator) snapshotLocked() State {
	return State{
		CurrentIndex:     n.current,
		TotalSpreads:     n.total,
		Transitioning:    n.transitioning,
		Direction:        n.direction,
		HighWaterMark:    n.highWater,
		ReadingCompleted: n.completed,
	}
}

// emitAndUnlock hands the emit lock over before releasing the state lock so
// observers see events in the order the state changed.
func (n *Navigator) emitAndUnlock(events ...Event) {
	n.emitMu.Lock()
	n.mu.Unlock()
	defer n.emitMu.Unlock()
	for _, evt := range events {
		for _, o := range n.observers {
			o(evt)
		}
	}
}
