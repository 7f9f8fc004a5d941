package story

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store persists books and their media.
type Store interface {
	Create(ctx context.Context, b *Book) error
	Get(ctx context.Context, id string) (*Book, error)
	// List returns books newest first.
	List(ctx context.Context) ([]*Book, error)
	// Update applies fn to the stored book atomically and returns the result.
	// If fn returns an error nothing is written.
	Update(ctx context.Context, id string, fn func(*Book) error) (*Book, error)
	// SetPageImage records that page (0-based) has its illustration under name.
	SetPageImage(ctx context.Context, id string, page int, name string) (*Book, error)
	Delete(ctx context.Context, id string) error

	WriteMedia(ctx context.Context, id, name string, data []byte) error
	ReadMedia(ctx context.Context, id, name string) ([]byte, error)
}

// setPageImage is the shared Update body for SetPageImage.
func setPageImage(page int, name string) func(*Book) error {
	return func(b *Book) error {
		if b.Analysis == nil {
			return ErrNotAnalyzed
		}
		if page < 0 || page >= len(b.Analysis.Pages) {
			return fmt.Errorf("page %d out of range", page)
		}
		if !ValidMediaName(name) {
			return fmt.Errorf("%w: %q", ErrInvalidMedia, name)
		}
		b.Analysis.Pages[page].Image = name
		return nil
	}
}

func sortNewestFirst(books []*Book) {
	sort.Slice(books, func(i, j int) bool {
		return books[i].CreatedAt.After(books[j].CreatedAt)
	})
}

// MemoryStore keeps books in memory. Used in tests and offline mode.
type MemoryStore struct {
	mu    sync.RWMutex
	books map[string]*Book
	media map[string]map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books: make(map[string]*Book),
		media: make(map[string]map[string][]byte),
	}
}

func (s *MemoryStore) Create(ctx context.Context, b *Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[b.ID]; ok {
		return fmt.Errorf("book %s already exists", b.ID)
	}
	s.books[b.ID] = b.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Book, error) {
	s.mu.RLock()
	out := make([]*Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, b.Clone())
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*Book) error) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := b.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	s.books[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) SetPageImage(ctx context.Context, id string, page int, name string) (*Book, error) {
	return s.Update(ctx, id, setPageImage(page, name))
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return ErrNotFound
	}
	delete(s.books, id)
	delete(s.media, id)
	return nil
}

func (s *MemoryStore) WriteMedia(ctx context.Context, id, name string, data []byte) error {
	if !ValidMediaName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidMedia, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return ErrNotFound
	}
	if s.media[id] == nil {
		s.media[id] = make(map[string][]byte)
	}
	s.media[id][name] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) ReadMedia(ctx context.Context, id, name string) ([]byte, error) {
	if !ValidMediaName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMedia, name)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.media[id][name]
	if !ok {
		return nil, fmt.Errorf("media %s/%s: %w", id, name, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}
