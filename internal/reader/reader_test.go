package reader

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/doodlebook/internal/story"
	"github.com/jackzampolin/doodlebook/internal/storybook"
)

func readyBook(t *testing.T, store story.Store) *story.Book {
	t.Helper()
	b := story.NewBook("image/png")
	b.Status = story.StatusReady
	b.Video = story.VideoName
	b.Analysis = &story.Analysis{
		Subject:    "a purple dragon",
		StoryTitle: "The Dancing Dragon",
		ArtistName: "Maya",
		Age:        "6",
		Pages: []story.Page{
			{Text: "Once upon a time...", Image: "page_0001.png"},
			{Text: "The dragon danced."},
			{Text: "The end of the dance."},
		},
	}
	if err := store.Create(context.Background(), b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return b
}

func newTestManager(t *testing.T) (*Manager, *storybook.ManualScheduler, *Session) {
	t.Helper()
	store := story.NewMemoryStore()
	b := readyBook(t, store)
	clock := storybook.NewManualScheduler()
	m := NewManager(store, Config{}, WithScheduler(clock))
	s, err := m.Open(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return m, clock, s
}

func sounds(cues []Cue) []Sound {
	out := make([]Sound, len(cues))
	for i, c := range cues {
		out[i] = c.Sound
	}
	return out
}

func equalSounds(a, b []Sound) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func flip(t *testing.T, s *Session, clock *storybook.ManualScheduler) {
	t.Helper()
	if !s.Next() {
		t.Fatalf("Next() rejected at %+v", s.State())
	}
	clock.Advance(storybook.DefaultFlipDelay)
}

func TestSession_Open(t *testing.T) {
	_, clock, s := newTestManager(t)

	cues := s.Cues(0)
	if len(cues) != 1 || cues[0].Sound != SoundMagicOpen || cues[0].Volume != 0.4 || cues[0].Seq != 1 {
		t.Fatalf("open cues = %+v", cues)
	}
	if !s.KeyboardHint() {
		t.Error("keyboard hint hidden at open")
	}
	if s.State().TotalSpreads != 5 {
		t.Errorf("TotalSpreads = %d, want 5", s.State().TotalSpreads)
	}

	clock.Advance(4999 * time.Millisecond)
	if !s.KeyboardHint() {
		t.Error("keyboard hint hidden before 5s")
	}
	clock.Advance(time.Millisecond)
	if s.KeyboardHint() {
		t.Error("keyboard hint still showing after 5s")
	}
}

func TestSession_ReadToEnd(t *testing.T) {
	_, clock, s := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		flip(t, s, clock)
	}
	if _, err := s.ShareLinks(ctx); !errors.Is(err, ErrShareLocked) {
		t.Fatalf("ShareLinks() before end error = %v, want ErrShareLocked", err)
	}

	if !s.Next() {
		t.Fatal("final Next() rejected")
	}
	clock.Advance(399 * time.Millisecond)
	if got := sounds(s.Cues(0)); got[len(got)-1] == SoundCheer {
		t.Fatal("cheer played before 400ms")
	}
	clock.Advance(time.Millisecond)
	want := []Sound{SoundMagicOpen, SoundPageFlip, SoundPageFlip, SoundPageFlip, SoundPageFlip, SoundCheer}
	if got := sounds(s.Cues(0)); !equalSounds(got, want) {
		t.Fatalf("cues = %v, want %v", got, want)
	}
	if s.UnlockBanner() {
		t.Error("banner showing before turn finished")
	}

	clock.Advance(200 * time.Millisecond)
	st := s.State()
	if !st.ReadingCompleted || st.CurrentIndex != 4 {
		t.Fatalf("state after final turn = %+v", st)
	}
	if !s.UnlockBanner() {
		t.Error("unlock banner not showing")
	}
	clock.Advance(3000 * time.Millisecond)
	if s.UnlockBanner() {
		t.Error("unlock banner still showing after 3s")
	}

	share, err := s.ShareLinks(ctx)
	if err != nil {
		t.Fatalf("ShareLinks() error = %v", err)
	}
	if share.URL != DefaultShareURL {
		t.Errorf("URL = %q", share.URL)
	}
	if share.Title != "Story: The Dancing Dragon" {
		t.Errorf("Title = %q", share.Title)
	}

	// Sharing stays unlocked after walking back.
	if !s.Prev() {
		t.Fatal("Prev() rejected")
	}
	clock.Advance(storybook.DefaultFlipDelay)
	if _, err := s.ShareLinks(ctx); err != nil {
		t.Errorf("ShareLinks() after Prev error = %v", err)
	}
	if got := s.Cues(6); len(got) != 1 || got[0].Sound != SoundPageFlip {
		t.Errorf("Cues(6) = %+v", got)
	}
}

func TestSession_CheerOnEveryFinalTurn(t *testing.T) {
	_, clock, s := newTestManager(t)
	for i := 0; i < 4; i++ {
		flip(t, s, clock)
	}
	if !s.Jump(3) {
		t.Fatal("Jump(3) rejected")
	}
	flip(t, s, clock)

	cheers := 0
	for _, c := range s.Cues(0) {
		if c.Sound == SoundCheer {
			cheers++
		}
	}
	if cheers != 2 {
		t.Errorf("cheers = %d, want 2", cheers)
	}
	s.mu.Lock()
	pending := len(s.cheerTimers)
	s.mu.Unlock()
	if pending != 0 {
		t.Errorf("%d cheer timers still tracked after firing", pending)
	}
}

func TestSession_CheerOnWallClock(t *testing.T) {
	store := story.NewMemoryStore()
	b := readyBook(t, store)
	m := NewManager(store, Config{FlipDelay: time.Millisecond, CheerDelay: time.Nanosecond})
	t.Cleanup(m.CloseAll)
	s, err := m.Open(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	waitFor := func(what string, cond func() bool) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for !cond() {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for %s", what)
			}
			time.Sleep(time.Millisecond)
		}
	}
	for !s.State().ReadingCompleted {
		if !s.Next() {
			t.Fatalf("Next() rejected at %+v", s.State())
		}
		waitFor("page turn", func() bool { return !s.State().Transitioning })
	}
	waitFor("cheer", func() bool {
		for _, c := range s.Cues(0) {
			if c.Sound == SoundCheer {
				return true
			}
		}
		return false
	})

	s.mu.Lock()
	pending := len(s.cheerTimers)
	s.mu.Unlock()
	if pending != 0 {
		t.Errorf("%d cheer timers still tracked after firing", pending)
	}
}

func TestSession_Jump(t *testing.T) {
	_, clock, s := newTestManager(t)
	flip(t, s, clock)
	flip(t, s, clock)

	before := len(s.Cues(0))
	if s.Jump(4) {
		t.Fatal("Jump(4) accepted before end reached")
	}
	if s.Jump(2) {
		t.Fatal("Jump to current spread accepted")
	}
	if len(s.Cues(0)) != before {
		t.Fatal("rejected jump produced a cue")
	}

	if !s.Jump(0) {
		t.Fatal("Jump(0) rejected")
	}
	cues := s.Cues(0)
	last := cues[len(cues)-1]
	if last.Sound != SoundClick || last.Volume != 0.3 {
		t.Errorf("jump cue = %+v", last)
	}
	if s.State().CurrentIndex != 0 || s.State().HighWaterMark != 2 {
		t.Errorf("state after jump = %+v", s.State())
	}
}

func TestSession_HandleKey(t *testing.T) {
	_, clock, s := newTestManager(t)

	if intent, ok := s.HandleKey("ArrowRight"); intent != storybook.IntentNext || !ok {
		t.Fatalf("HandleKey(ArrowRight) = %q, %v", intent, ok)
	}
	if s.KeyboardHint() {
		t.Error("hint still showing after key press")
	}

	if intent, ok := s.HandleKey("Escape"); intent != storybook.IntentClose || ok {
		t.Errorf("Escape during turn = %q, %v; want swallowed", intent, ok)
	}
	clock.Advance(storybook.DefaultFlipDelay)

	if _, ok := s.HandleKey("x"); ok {
		t.Error("unmapped key reported handled")
	}
	if intent, ok := s.HandleKey("ArrowLeft"); intent != storybook.IntentPrev || !ok {
		t.Errorf("HandleKey(ArrowLeft) = %q, %v", intent, ok)
	}
	clock.Advance(storybook.DefaultFlipDelay)
	if intent, ok := s.HandleKey("Escape"); intent != storybook.IntentClose || !ok {
		t.Errorf("HandleKey(Escape) = %q, %v", intent, ok)
	}
}

func TestSession_KeyDuringTurnKeepsHint(t *testing.T) {
	_, clock, s := newTestManager(t)
	if !s.Next() {
		t.Fatal("Next() rejected")
	}
	s.HandleKey("ArrowRight")
	if !s.KeyboardHint() {
		t.Error("key during turn hid the hint")
	}
	clock.Advance(storybook.DefaultFlipDelay)
	if s.State().CurrentIndex != 1 {
		t.Errorf("CurrentIndex = %d, want 1", s.State().CurrentIndex)
	}
}

func TestManager_Close(t *testing.T) {
	m, clock, s := newTestManager(t)
	for i := 0; i < 3; i++ {
		flip(t, s, clock)
	}
	if !s.Next() {
		t.Fatal("final Next() rejected")
	}

	cue, err := m.Close(s.ID())
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if cue.Sound != SoundBookClose || cue.Volume != 0.7 {
		t.Errorf("close cue = %+v", cue)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after Close error = %v", err)
	}
	if _, err := m.Close(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Close() error = %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d before close delay", m.Len())
	}

	clock.Advance(time.Second)
	if m.Len() != 0 {
		t.Errorf("Len() = %d after close delay", m.Len())
	}
	st := s.State()
	if st.CurrentIndex != 3 || st.ReadingCompleted {
		t.Errorf("pending turn completed after close: %+v", st)
	}
	for _, c := range s.Cues(0) {
		if c.Sound == SoundCheer {
			t.Error("cheer played after close")
		}
	}
}

func TestManager_CloseIdle(t *testing.T) {
	m, _, s := newTestManager(t)

	if n := m.CloseIdle(time.Hour); n != 0 {
		t.Errorf("CloseIdle(hour) = %d, want 0", n)
	}
	if n := m.CloseIdle(-1); n != 1 {
		t.Fatalf("CloseIdle(-1) = %d, want 1", n)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after expiry", m.Len())
	}
	if !s.Closing() || !s.Navigator().Closed() {
		t.Error("expired session still open")
	}
	if got := s.Cues(0); got[len(got)-1].Seq != s.LastCueSeq() {
		t.Errorf("LastCueSeq() = %d, want %d", s.LastCueSeq(), got[len(got)-1].Seq)
	}
}

func TestManager_Open(t *testing.T) {
	store := story.NewMemoryStore()
	m := NewManager(store, Config{}, WithScheduler(storybook.NewManualScheduler()))
	ctx := context.Background()

	if _, err := m.Open(ctx, "missing"); !errors.Is(err, story.ErrNotFound) {
		t.Errorf("Open(missing) error = %v", err)
	}

	draft := story.NewBook("image/png")
	if err := store.Create(ctx, draft); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open(ctx, draft.ID); !errors.Is(err, ErrBookNotReady) {
		t.Errorf("Open(draft) error = %v", err)
	}

	b := readyBook(t, store)
	s1, err := m.Open(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := m.Open(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if s1.ID() == s2.ID() {
		t.Error("sessions share an id")
	}
	if got := m.ForBook(b.ID); len(got) != 2 {
		t.Errorf("ForBook() = %d sessions", len(got))
	}

	m.CloseAll()
	if m.Len() != 0 {
		t.Errorf("Len() after CloseAll = %d", m.Len())
	}
	if s1.Next() {
		t.Error("closed session accepted Next()")
	}
}

func TestSession_View(t *testing.T) {
	_, clock, s := newTestManager(t)
	ctx := context.Background()

	v, err := s.View(ctx, nil)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if v.Kind != storybook.SpreadCover || v.Footer != "START" || v.Progress != 0 {
		t.Errorf("cover view = %+v", v)
	}
	if v.VideoURL != "/api/books/"+s.BookID()+"/media/movie.mp4" {
		t.Errorf("VideoURL = %q", v.VideoURL)
	}
	if v.Credits == nil || v.Credits.ArtistName != "Maya" {
		t.Errorf("Credits = %+v", v.Credits)
	}
	if v.CanPrev || !v.CanNext {
		t.Errorf("cover CanPrev=%v CanNext=%v", v.CanPrev, v.CanNext)
	}
	if len(v.Indicators) != 5 || !v.Indicators[0].Accessible || v.Indicators[1].Accessible {
		t.Errorf("cover indicators = %+v", v.Indicators)
	}
	if v.DownloadName != "the-dancing-dragon-movie.mp4" {
		t.Errorf("DownloadName = %q", v.DownloadName)
	}

	flip(t, s, clock)
	v, _ = s.View(ctx, nil)
	if v.Text != "Once upon a time..." || v.PageLabel != "Page 1 of 3" || v.Footer != "PAGE 1" {
		t.Errorf("page 1 view = %+v", v)
	}
	if !strings.HasSuffix(v.ImageURL, "/media/page_0001.png") || v.Placeholder != "" {
		t.Errorf("page 1 image = %q placeholder = %q", v.ImageURL, v.Placeholder)
	}
	if v.Progress != 25 {
		t.Errorf("Progress = %v, want 25", v.Progress)
	}

	flip(t, s, clock)
	v, _ = s.View(ctx, nil)
	if v.ImageURL != "" || v.Placeholder != PlaceholderText {
		t.Errorf("page 2 image = %q placeholder = %q", v.ImageURL, v.Placeholder)
	}

	// An illustration arriving mid-read shows on the next view.
	if _, err := s.store.SetPageImage(ctx, s.BookID(), 1, "page_0002.png"); err != nil {
		t.Fatal(err)
	}
	v, _ = s.View(ctx, func(bookID, name string) string { return "cdn://" + name })
	if v.ImageURL != "cdn://page_0002.png" {
		t.Errorf("ImageURL after arrival = %q", v.ImageURL)
	}

	flip(t, s, clock)
	flip(t, s, clock)
	v, _ = s.View(ctx, nil)
	if v.Kind != storybook.SpreadEnd || v.Footer != "THE END" || v.Progress != 100 || !v.ShareUnlocked {
		t.Errorf("end view = %+v", v)
	}
	for _, ind := range v.Indicators {
		if !ind.Accessible {
			t.Errorf("indicator %d inaccessible after completion", ind.Index)
		}
	}
}

func TestBuildShare(t *testing.T) {
	sh := BuildShare("https://example.com/b/1", "Moon Cat", "a cat")

	if sh.Text != `Check out this magical story I made with my drawing! It's called "Moon Cat". Starring a cat!` {
		t.Errorf("Text = %q", sh.Text)
	}
	if sh.Clipboard != sh.Text+" https://example.com/b/1" {
		t.Errorf("Clipboard = %q", sh.Clipboard)
	}
	wantX := "https://twitter.com/intent/tweet?text=Check%20out%20this%20beautiful%20story%20I%20made%21%20It%27s%20called%20%22Moon%20Cat%22." +
		"&url=https%3A%2F%2Fexample.com%2Fb%2F1"
	if sh.X != wantX {
		t.Errorf("X = %q\nwant %q", sh.X, wantX)
	}
	if sh.Facebook != "https://www.facebook.com/sharer/sharer.php?u=https%3A%2F%2Fexample.com%2Fb%2F1" {
		t.Errorf("Facebook = %q", sh.Facebook)
	}
	if !strings.HasPrefix(sh.Mailto, "mailto:?subject=Story%3A%20Moon%20Cat&body=") {
		t.Errorf("Mailto = %q", sh.Mailto)
	}
}

func TestShareURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://books.example.com/", "https://books.example.com/"},
		{"http://localhost:8080", "http://localhost:8080"},
		{"file:///tmp/book.html", DefaultShareURL},
		{"not a url", DefaultShareURL},
		{"", DefaultShareURL},
	}
	for _, tt := range tests {
		if got := shareURL(tt.in); got != tt.want {
			t.Errorf("shareURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDownloadName(t *testing.T) {
	tests := []struct {
		title, want string
	}{
		{"The Dancing Dragon", "the-dancing-dragon-movie.mp4"},
		{"  Big\tTeeth ", "-big-teeth--movie.mp4"},
		{"Rex", "rex-movie.mp4"},
	}
	for _, tt := range tests {
		if got := DownloadName(tt.title); got != tt.want {
			t.Errorf("DownloadName(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
