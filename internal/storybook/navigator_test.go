package storybook

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func newTestNavigator(pageCount int, opts ...Option) (*Navigator, *ManualScheduler, *recorder) {
	clock := NewManualScheduler()
	rec := &recorder{}
	opts = append([]Option{WithScheduler(clock), WithObserver(rec.observe)}, opts...)
	return New(pageCount, opts...), clock, rec
}

// turn issues a page turn and waits for it to complete.
func turn(t *testing.T, n *Navigator, clock *ManualScheduler, forward bool) {
	t.Helper()
	ok := n.GoNext
	if !forward {
		ok = n.GoPrev
	}
	if !ok() {
		t.Fatalf("turn rejected at state %+v", n.State())
	}
	clock.Advance(DefaultFlipDelay)
	if n.State().Transitioning {
		t.Fatal("still transitioning after flip delay")
	}
}

func TestTotalSpreads(t *testing.T) {
	tests := []struct {
		pages int
		want  int
	}{
		{0, 2},
		{1, 3},
		{3, 5},
		{12, 14},
		{-4, 2},
	}
	for _, tt := range tests {
		if got := New(tt.pages).State().TotalSpreads; got != tt.want {
			t.Errorf("New(%d).TotalSpreads = %d, want %d", tt.pages, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(0, 5) != SpreadCover {
		t.Error("index 0 should be the cover")
	}
	if KindOf(4, 5) != SpreadEnd {
		t.Error("last index should be the end spread")
	}
	for i := 1; i <= 3; i++ {
		if KindOf(i, 5) != SpreadStory {
			t.Errorf("index %d should be a story spread", i)
		}
		page, ok := StoryPage(i, 5)
		if !ok || page != i-1 {
			t.Errorf("StoryPage(%d) = %d, %v", i, page, ok)
		}
	}
	if _, ok := StoryPage(0, 5); ok {
		t.Error("cover has no story page")
	}
	if _, ok := StoryPage(4, 5); ok {
		t.Error("end spread has no story page")
	}
}

func TestNavigator_Scenarios(t *testing.T) {
	n, clock, rec := newTestNavigator(3)

	// A: three turns land on the last story page.
	for i := 0; i < 3; i++ {
		turn(t, n, clock, true)
	}
	s := n.State()
	if s.CurrentIndex != 3 || s.HighWaterMark != 3 || s.ReadingCompleted {
		t.Fatalf("after three turns: %+v", s)
	}
	if rec.count(EventUnlocked) != 0 {
		t.Fatal("unlock fired before the end spread")
	}

	// B: the fourth turn reaches the end and unlocks once.
	turn(t, n, clock, true)
	s = n.State()
	if s.CurrentIndex != 4 || s.HighWaterMark != 4 || !s.ReadingCompleted {
		t.Fatalf("after fourth turn: %+v", s)
	}
	if got := rec.count(EventUnlocked); got != 1 {
		t.Fatalf("unlock fired %d times, want 1", got)
	}
	if !n.IsAtEnd() {
		t.Error("IsAtEnd() = false on the end spread")
	}

	// C: an unrestricted jump back is immediate.
	if !n.JumpTo(1) {
		t.Fatal("JumpTo(1) rejected after completion")
	}
	s = n.State()
	if s.CurrentIndex != 1 || s.HighWaterMark != 4 || s.Transitioning {
		t.Fatalf("after jump: %+v", s)
	}

	// Reaching the end again does not unlock twice.
	if !n.JumpTo(3) {
		t.Fatal("JumpTo(3) rejected")
	}
	turn(t, n, clock, true)
	if got := rec.count(EventUnlocked); got != 1 {
		t.Errorf("unlock fired %d times after revisiting end, want 1", got)
	}
}

func TestNavigator_JumpBeyondWatermark(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	n, _, rec := newTestNavigator(3, WithLogger(logger))

	before := n.State()
	if n.JumpTo(3) {
		t.Fatal("JumpTo(3) accepted on a fresh session")
	}
	if after := n.State(); after != before {
		t.Errorf("state changed: %+v -> %+v", before, after)
	}
	if rec.count(EventJumpRejected) != 1 {
		t.Error("expected a jump_rejected event")
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}

func TestNavigator_DropsRequestsDuringTransition(t *testing.T) {
	n, clock, rec := newTestNavigator(3)

	if !n.GoNext() {
		t.Fatal("first GoNext rejected")
	}
	mid := n.State()
	if !mid.Transitioning || mid.Direction != Forward || mid.CurrentIndex != 0 {
		t.Fatalf("mid-transition state: %+v", mid)
	}

	if n.GoNext() {
		t.Error("second GoNext accepted during transition")
	}
	if n.GoPrev() {
		t.Error("GoPrev accepted during transition")
	}
	if n.JumpTo(0) || n.JumpTo(1) {
		t.Error("JumpTo accepted during transition")
	}
	if got := n.State(); got != mid {
		t.Errorf("state changed during transition: %+v -> %+v", mid, got)
	}

	clock.Advance(DefaultFlipDelay)
	clock.Advance(DefaultFlipDelay)

	if got := n.State().CurrentIndex; got != 1 {
		t.Errorf("CurrentIndex = %d, want 1", got)
	}
	if got := rec.count(EventTransitionFinished); got != 1 {
		t.Errorf("finished %d transitions, want 1", got)
	}
}

func TestNavigator_TransitionTiming(t *testing.T) {
	n, clock, _ := newTestNavigator(2, WithFlipDelay(250*time.Millisecond))

	n.GoNext()
	clock.Advance(249 * time.Millisecond)
	if s := n.State(); s.CurrentIndex != 0 || !s.Transitioning {
		t.Fatalf("index moved early: %+v", s)
	}
	clock.Advance(time.Millisecond)
	if s := n.State(); s.CurrentIndex != 1 || s.Transitioning {
		t.Fatalf("index did not move on time: %+v", s)
	}
}

func TestNavigator_Boundaries(t *testing.T) {
	n, clock, _ := newTestNavigator(1)

	if n.GoPrev() {
		t.Error("GoPrev accepted on the cover")
	}
	if !n.IsAtStart() {
		t.Error("IsAtStart() = false on the cover")
	}
	turn(t, n, clock, true)
	turn(t, n, clock, true)
	if n.GoNext() {
		t.Error("GoNext accepted on the end spread")
	}
	if n.JumpTo(n.State().CurrentIndex) {
		t.Error("JumpTo current index accepted")
	}
	if n.JumpTo(-1) || n.JumpTo(3) {
		t.Error("out of range jump accepted")
	}
	if n.Accessible(-1) || n.Accessible(3) {
		t.Error("out of range index reported accessible")
	}
	if s := n.State(); s.Accessible(-1) || s.Accessible(3) || !s.Accessible(2) {
		t.Errorf("State.Accessible disagrees with the navigator at %+v", s)
	}
}

func TestState_Accessible(t *testing.T) {
	tests := []struct {
		name  string
		state State
		index int
		want  bool
	}{
		{"cover", State{TotalSpreads: 4}, 0, true},
		{"ahead of watermark", State{TotalSpreads: 4, HighWaterMark: 1}, 2, false},
		{"at watermark", State{TotalSpreads: 4, HighWaterMark: 2}, 2, true},
		{"completed", State{TotalSpreads: 4, HighWaterMark: 3, ReadingCompleted: true}, 3, true},
		{"negative", State{TotalSpreads: 4, HighWaterMark: 1}, -1, false},
		{"negative when completed", State{TotalSpreads: 4, ReadingCompleted: true}, -1, false},
		{"past the end when completed", State{TotalSpreads: 4, ReadingCompleted: true}, 4, false},
		{"zero value", State{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Accessible(tt.index); got != tt.want {
				t.Errorf("Accessible(%d) = %v, want %v", tt.index, got, tt.want)
			}
		})
	}
}

func TestNavigator_GoPrevKeepsWatermark(t *testing.T) {
	n, clock, _ := newTestNavigator(4)

	turn(t, n, clock, true)
	turn(t, n, clock, true)
	turn(t, n, clock, false)

	s := n.State()
	if s.CurrentIndex != 1 || s.HighWaterMark != 2 {
		t.Fatalf("state after back turn: %+v", s)
	}
	if s.Direction != Backward {
		t.Errorf("Direction = %q, want backward", s.Direction)
	}
	if !n.Accessible(2) || n.Accessible(3) {
		t.Error("accessibility should follow the watermark")
	}
	if !n.JumpTo(2) {
		t.Error("jump to watermark rejected")
	}
	if n.State().HighWaterMark != 2 {
		t.Error("jump moved the watermark")
	}
}

func TestNavigator_CloseCancelsPendingTurn(t *testing.T) {
	n, clock, rec := newTestNavigator(3)

	n.GoNext()
	n.Close()
	if clock.Pending() != 0 {
		t.Errorf("pending timers after Close = %d", clock.Pending())
	}
	clock.Advance(time.Second)

	if got := n.State().CurrentIndex; got != 0 {
		t.Errorf("CurrentIndex = %d after Close, want 0", got)
	}
	if rec.count(EventTransitionFinished) != 0 {
		t.Error("transition finished after Close")
	}
	if n.GoNext() || n.JumpTo(0) {
		t.Error("intent accepted after Close")
	}
	n.Close()
	if !n.Closed() {
		t.Error("Closed() = false")
	}
}

func TestNavigator_StaleCallbackIgnored(t *testing.T) {
	clock := NewManualScheduler()
	n := New(3, WithScheduler(clock))

	n.GoNext()
	stale := n.gen
	clock.Advance(DefaultFlipDelay)
	n.GoNext()

	n.finishTurn(stale)
	if s := n.State(); s.CurrentIndex != 1 || !s.Transitioning {
		t.Fatalf("stale callback mutated state: %+v", s)
	}
	clock.Advance(DefaultFlipDelay)
	if got := n.State().CurrentIndex; got != 2 {
		t.Errorf("CurrentIndex = %d, want 2", got)
	}
}

func TestNavigator_EventOrder(t *testing.T) {
	n, clock, rec := newTestNavigator(0)

	turn(t, n, clock, true)

	want := []EventType{EventTransitionStarted, EventTransitionFinished, EventUnlocked}
	if len(rec.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(rec.events), len(want))
	}
	for i, e := range rec.events {
		if e.Type != want[i] {
			t.Errorf("event %d = %s, want %s", i, e.Type, want[i])
		}
	}
	if rec.events[0].State.CurrentIndex != 0 || rec.events[1].State.CurrentIndex != 1 {
		t.Error("event snapshots do not match the change")
	}
}

func TestNavigator_Invariants(t *testing.T) {
	n, clock, _ := newTestNavigator(5)

	// A fixed pseudo-random walk of intents.
	ops := "nnpjnnjpnnnnjpppjnnnnnnjjpn"
	targets := []int{3, 1, 6, 0, 2, 5, 4}
	lastHW := 0
	wasCompleted := false
	accessibleSeen := make(map[int]bool)
	ti := 0

	for _, op := range ops {
		switch op {
		case 'n':
			n.GoNext()
		case 'p':
			n.GoPrev()
		case 'j':
			n.JumpTo(targets[ti%len(targets)])
			ti++
		}
		clock.Advance(DefaultFlipDelay)

		s := n.State()
		if s.CurrentIndex < 0 || s.CurrentIndex > s.TotalSpreads-1 {
			t.Fatalf("index out of range: %+v", s)
		}
		if s.HighWaterMark < lastHW {
			t.Fatalf("watermark decreased: %d -> %d", lastHW, s.HighWaterMark)
		}
		lastHW = s.HighWaterMark
		if wasCompleted && !s.ReadingCompleted {
			t.Fatal("reading completed was reset")
		}
		wasCompleted = s.ReadingCompleted
		for i := 0; i < s.TotalSpreads; i++ {
			ok := n.Accessible(i)
			if accessibleSeen[i] && !ok {
				t.Fatalf("index %d became inaccessible", i)
			}
			accessibleSeen[i] = accessibleSeen[i] || ok
		}
	}
}

func TestHandleKey(t *testing.T) {
	n, clock, _ := newTestNavigator(3)

	if intent, ok := n.HandleKey("ArrowRight"); intent != IntentNext || !ok {
		t.Fatalf("ArrowRight = %q, %v", intent, ok)
	}
	for _, key := range []string{" ", "ArrowLeft", "Escape"} {
		if _, ok := n.HandleKey(key); ok {
			t.Errorf("key %q consumed during transition", key)
		}
	}
	clock.Advance(DefaultFlipDelay)

	if intent, ok := n.HandleKey("ArrowLeft"); intent != IntentPrev || !ok {
		t.Errorf("ArrowLeft = %q, %v", intent, ok)
	}
	clock.Advance(DefaultFlipDelay)

	if intent, ok := n.HandleKey("Escape"); intent != IntentClose || !ok {
		t.Errorf("Escape = %q, %v", intent, ok)
	}
	if n.Closed() {
		t.Error("HandleKey closed the navigator itself")
	}
	if intent, ok := n.HandleKey("a"); intent != IntentNone || ok {
		t.Errorf("unmapped key = %q, %v", intent, ok)
	}
	if intent, ok := n.HandleKey("ArrowLeft"); intent != IntentPrev || ok {
		t.Errorf("ArrowLeft on cover = %q, %v", intent, ok)
	}
}

func TestKeyIntent(t *testing.T) {
	tests := map[string]Intent{
		"ArrowRight": IntentNext,
		" ":          IntentNext,
		"Space":      IntentNext,
		"ArrowLeft":  IntentPrev,
		"Escape":     IntentClose,
		"Enter":      IntentNone,
		"":           IntentNone,
	}
	for key, want := range tests {
		if got := KeyIntent(key); got != want {
			t.Errorf("KeyIntent(%q) = %q, want %q", key, got, want)
		}
	}
}
