// Package reader hosts interactive reading sessions for finished books. A
// session wraps a storybook.Navigator and adds the presentation state a thin
// client needs: sound cues, the unlock banner, the keyboard hint, share
// gating and a per-spread view.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/doodlebook/internal/story"
	"github.com/jackzampolin/doodlebook/internal/storybook"
)

var (
	// ErrSessionNotFound is returned for unknown or closed session ids.
	ErrSessionNotFound = errors.New("reading session not found")
	// ErrShareLocked is returned by share operations before the end spread
	// has been reached by turning forward.
	ErrShareLocked = errors.New("finish reading to share")
	// ErrBookNotReady is returned when a session is opened for a book that
	// has no story or movie yet.
	ErrBookNotReady = errors.New("book is not ready to read")
)

// Config holds reader timings.
type Config struct {
	FlipDelay     time.Duration
	CheerDelay    time.Duration
	UnlockDisplay time.Duration
	HintDisplay   time.Duration
	CloseDelay    time.Duration
	// ShareURL is the public link shared to social sites. Non-http values
	// fall back to DefaultShareURL.
	ShareURL string
}

// DefaultShareURL is the fallback link for shares.
const DefaultShareURL = "https://doodlemagic.app"

// DefaultConfig returns the standard reader timings.
func DefaultConfig() Config {
	return Config{
		FlipDelay:     storybook.DefaultFlipDelay,
		CheerDelay:    400 * time.Millisecond,
		UnlockDisplay: 3000 * time.Millisecond,
		HintDisplay:   5000 * time.Millisecond,
		CloseDelay:    200 * time.Millisecond,
		ShareURL:      DefaultShareURL,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FlipDelay <= 0 {
		c.FlipDelay = d.FlipDelay
	}
	if c.CheerDelay <= 0 {
		c.CheerDelay = d.CheerDelay
	}
	if c.UnlockDisplay <= 0 {
		c.UnlockDisplay = d.UnlockDisplay
	}
	if c.HintDisplay <= 0 {
		c.HintDisplay = d.HintDisplay
	}
	if c.CloseDelay <= 0 {
		c.CloseDelay = d.CloseDelay
	}
	if c.ShareURL == "" {
		c.ShareURL = d.ShareURL
	}
	return c
}

// Session is one opened book.
type Session struct {
	id     string
	bookID string
	store  story.Store
	nav    *storybook.Navigator
	sched  storybook.Scheduler
	cfg    Config
	logger *slog.Logger
	opened time.Time

	mu           sync.Mutex
	cues         []Cue
	seq          uint64
	bannerShown  bool
	bannerTimer  storybook.Timer
	hintShown    bool
	hintTimer    storybook.Timer
	cheerTimers  map[uint64]storybook.Timer
	cheerSeq     uint64
	closing      bool
	lastActivity time.Time
}

func newSession(b *story.Book, store story.Store, sched storybook.Scheduler, cfg Config, logger *slog.Logger) (*Session, error) {
	if b.Analysis == nil || b.PageCount() == 0 || b.Video == "" {
		return nil, fmt.Errorf("%w: %s is %s", ErrBookNotReady, b.ID, b.Status)
	}
	now := time.Now()
	s := &Session{
		id:           uuid.New().String(),
		bookID:       b.ID,
		store:        store,
		sched:        sched,
		cfg:          cfg,
		opened:       now,
		hintShown:    true,
		lastActivity: now,
	}
	s.logger = logger.With("session_id", s.id, "book_id", b.ID)
	s.nav = storybook.New(b.PageCount(),
		storybook.WithFlipDelay(cfg.FlipDelay),
		storybook.WithScheduler(sched),
		storybook.WithLogger(s.logger),
		storybook.WithObserver(s.observe),
	)

	s.mu.Lock()
	s.addCueLocked(SoundMagicOpen)
	s.hintTimer = sched.AfterFunc(cfg.HintDisplay, s.hideHint)
	s.mu.Unlock()
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// BookID returns the id of the book being read.
func (s *Session) BookID() string { return s.bookID }

// Navigator exposes the underlying engine.
func (s *Session) Navigator() *storybook.Navigator { return s.nav }

// State returns the navigation snapshot.
func (s *Session) State() storybook.State { return s.nav.State() }

// observe runs on the navigator's emit path. It must not call back into the
// navigator's intents.
func (s *Session) observe(evt storybook.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return
	}
	switch evt.Type {
	case storybook.EventTransitionStarted:
		s.addCueLocked(SoundPageFlip)
		if evt.Direction == storybook.Forward && evt.From == evt.State.TotalSpreads-2 {
			// The callback takes s.mu, so it cannot look the timer up before
			// it is recorded here.
			s.cheerSeq++
			id := s.cheerSeq
			if s.cheerTimers == nil {
				s.cheerTimers = make(map[uint64]storybook.Timer)
			}
			s.cheerTimers[id] = s.sched.AfterFunc(s.cfg.CheerDelay, func() { s.cheer(id) })
		}
	case storybook.EventJumped:
		s.addCueLocked(SoundClick)
	case storybook.EventUnlocked:
		s.bannerShown = true
		s.bannerTimer = s.sched.AfterFunc(s.cfg.UnlockDisplay, s.hideBanner)
		s.logger.Info("sharing unlocked")
	}
}

func (s *Session) cheer(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cheerTimers, id)
	if s.closing {
		return
	}
	s.addCueLocked(SoundCheer)
}

func (s *Session) hideBanner() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bannerShown = false
	s.bannerTimer = nil
}

func (s *Session) hideHint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hintShown = false
	s.hintTimer = nil
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Next starts a forward page turn.
func (s *Session) Next() bool {
	s.touch()
	return s.nav.GoNext()
}

// Prev starts a backward page turn.
func (s *Session) Prev() bool {
	s.touch()
	return s.nav.GoPrev()
}

// Jump moves straight to a spread the reader has already reached.
func (s *Session) Jump(index int) bool {
	s.touch()
	return s.nav.JumpTo(index)
}

// HandleKey applies a key press. Keys are ignored entirely while a turn is in
// flight. Otherwise any key hides the keyboard hint. A returned IntentClose
// asks the caller to close the session.
func (s *Session) HandleKey(key string) (storybook.Intent, bool) {
	s.touch()
	if s.nav.IsTransitioning() {
		return storybook.KeyIntent(key), false
	}

	s.mu.Lock()
	if s.hintShown {
		s.hintShown = false
		if s.hintTimer != nil {
			s.hintTimer.Stop()
			s.hintTimer = nil
		}
	}
	s.mu.Unlock()

	return s.nav.HandleKey(key)
}

// Cues returns the sound cues with a sequence number greater than since.
func (s *Session) Cues(since uint64) []Cue {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Cue
	for _, c := range s.cues {
		if c.Seq > since {
			out = append(out, c)
		}
	}
	return out
}

// UnlockBanner reports whether the "Sharing Unlocked!" banner is showing.
func (s *Session) UnlockBanner() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bannerShown
}

// KeyboardHint reports whether the keyboard hint is showing.
func (s *Session) KeyboardHint() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hintShown
}

// Idle returns how long since the last reader input.
func (s *Session) Idle() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// Book loads the current book record.
func (s *Session) Book(ctx context.Context) (*story.Book, error) {
	return s.store.Get(ctx, s.bookID)
}

// beginClose stops the engine and every presentation timer and records the
// close cue. It reports false if the session was already closing.
func (s *Session) beginClose() bool {
	s.nav.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.closing = true
	for _, t := range s.cheerTimers {
		t.Stop()
	}
	s.cheerTimers = nil
	if s.bannerTimer != nil {
		s.bannerTimer.Stop()
		s.bannerTimer = nil
	}
	if s.hintTimer != nil {
		s.hintTimer.Stop()
		s.hintTimer = nil
	}
	s.addCueLocked(SoundBookClose)
	s.logger.Debug("reading session closing", "open_for", time.Since(s.opened))
	return true
}

// Closing reports whether the session has started closing.
func (s *Session) Closing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}
