package reader

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jackzampolin/doodlebook/internal/story"
	"github.com/jackzampolin/doodlebook/internal/storybook"
)

// Manager tracks open reading sessions. Sessions live in memory only.
type Manager struct {
	store  story.Store
	sched  storybook.Scheduler
	logger *slog.Logger

	mu       sync.RWMutex
	cfg      Config
	sessions map[string]*Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithScheduler replaces the wall-clock scheduler for every session.
func WithScheduler(s storybook.Scheduler) ManagerOption {
	return func(m *Manager) {
		if s != nil {
			m.sched = s
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a session manager reading books from store.
func NewManager(store story.Store, cfg Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		sched:    storybook.RealScheduler{},
		logger:   slog.Default(),
		cfg:      cfg.withDefaults(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetConfig replaces the timings used by sessions opened afterwards.
func (m *Manager) SetConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg.withDefaults()
}

// Config returns the current timings.
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Open starts a reading session on the cover of a finished book.
func (m *Manager) Open(ctx context.Context, bookID string) (*Session, error) {
	b, err := m.store.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	s, err := newSession(b, m.store, m.sched, m.Config(), m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	s.logger.Info("reading session opened", "pages", b.PageCount())
	return s, nil
}

// Get returns an open session. Sessions that are closing are not returned.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Closing() {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close plays the close cue, cancels the session's timers and drops the
// session once CloseDelay has passed. The returned cue is the book_close
// sound for the client to play.
func (m *Manager) Close(id string) (*Cue, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || !s.beginClose() {
		return nil, ErrSessionNotFound
	}

	m.sched.AfterFunc(m.Config().CloseDelay, func() { m.remove(id) })

	cues := s.Cues(0)
	last := cues[len(cues)-1]
	s.logger.Info("reading session closed", "completed", s.State().ReadingCompleted)
	return &last, nil
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// CloseAll closes and drops every session immediately.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.beginClose()
	}
	if len(sessions) > 0 {
		m.logger.Info("closed reading sessions", "count", len(sessions))
	}
}

// CloseIdle drops sessions with no reader activity for longer than maxIdle
// and returns how many were dropped.
func (m *Manager) CloseIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.Idle() > maxIdle {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.beginClose()
		s.logger.Info("reading session expired")
	}
	return len(idle)
}

// Len returns the number of tracked sessions, including ones still closing.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ForBook returns the open sessions reading a book, oldest first.
func (m *Manager) ForBook(bookID string) []*Session {
	m.mu.RLock()
	var out []*Session
	for _, s := range m.sessions {
		if s.bookID == bookID && !s.Closing() {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].opened.Before(out[j].opened) })
	return out
}
