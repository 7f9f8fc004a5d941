package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jackzampolin/doodlebook/internal/home"
)

// FileStore persists each book as {home}/books/{id}/book.json with its media
// alongside in media/. Records are cached in memory after Load.
type FileStore struct {
	home   *home.Dir
	logger *slog.Logger

	mu    sync.RWMutex
	books map[string]*Book
}

// NewFileStore creates a store rooted at h and loads existing records.
func NewFileStore(h *home.Dir, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStore{
		home:   h,
		logger: logger,
		books:  make(map[string]*Book),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads every book record from disk, replacing the cache. Unreadable
// records are skipped with a warning.
func (s *FileStore) Load() error {
	entries, err := os.ReadDir(s.home.BooksPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read books directory: %w", err)
	}

	books := make(map[string]*Book, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := s.home.BookRecordPath(entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping book without record", "path", path, "error", err)
			continue
		}
		var b Book
		if err := json.Unmarshal(data, &b); err != nil {
			s.logger.Warn("skipping corrupt book record", "path", path, "error", err)
			continue
		}
		if b.ID != entry.Name() {
			s.logger.Warn("skipping book record filed under another id", "path", path, "id", b.ID)
			continue
		}
		if recoverInterrupted(&b) {
			s.logger.Warn("book was interrupted mid-generation", "book_id", b.ID, "status", b.Status)
			if err := s.writeRecord(&b); err != nil {
				s.logger.Warn("failed to save recovered book", "book_id", b.ID, "error", err)
			}
		}
		books[b.ID] = &b
	}

	s.mu.Lock()
	s.books = books
	s.mu.Unlock()
	s.logger.Debug("loaded books", "count", len(books))
	return nil
}

func (s *FileStore) Create(ctx context.Context, b *Book) error {
	if !ValidMediaName(b.ID) {
		return fmt.Errorf("invalid book id %q", b.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[b.ID]; ok {
		return fmt.Errorf("book %s already exists", b.ID)
	}
	if err := s.home.EnsureMediaDir(b.ID); err != nil {
		return fmt.Errorf("failed to create book directory: %w", err)
	}
	c := b.Clone()
	if err := s.writeRecord(c); err != nil {
		return err
	}
	s.books[b.ID] = c
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b.Clone(), nil
}

func (s *FileStore) List(ctx context.Context) ([]*Book, error) {
	s.mu.RLock()
	out := make([]*Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, b.Clone())
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *FileStore) Update(ctx context.Context, id string, fn func(*Book) error) (*Book, error) {
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
	if err := s.writeRecord(next); err != nil {
		return nil, err
	}
	s.books[id] = next
	return next.Clone(), nil
}

func (s *FileStore) SetPageImage(ctx context.Context, id string, page int, name string) (*Book, error) {
	return s.Update(ctx, id, setPageImage(page, name))
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return ErrNotFound
	}
	if err := os.RemoveAll(s.home.BookDir(id)); err != nil {
		return fmt.Errorf("failed to remove book directory: %w", err)
	}
	delete(s.books, id)
	return nil
}

func (s *FileStore) WriteMedia(ctx context.Context, id, name string, data []byte) error {
	if !ValidMediaName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidMedia, name)
	}
	s.mu.RLock()
	_, ok := s.books[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := s.home.EnsureMediaDir(id); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}
	return writeFileAtomic(s.home.MediaPath(id, name), data)
}

func (s *FileStore) ReadMedia(ctx context.Context, id, name string) ([]byte, error) {
	if !ValidMediaName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMedia, name)
	}
	s.mu.RLock()
	_, ok := s.books[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.home.MediaPath(id, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("media %s/%s: %w", id, name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	return data, nil
}

// recoverInterrupted moves a book whose generation died with the process to
// a status it can be retried from. An interrupted analysis becomes failed;
// an interrupted movie goes back to refining. It reports whether b changed.
func recoverInterrupted(b *Book) bool {
	switch b.Status {
	case StatusAnalyzing:
		b.Status = StatusFailed
	case StatusAnimating:
		b.Status = StatusRefining
	default:
		return false
	}
	b.Progress = ""
	b.Error = MessageInterrupted
	b.UpdatedAt = time.Now().UTC()
	return true
}

func (s *FileStore) writeRecord(b *Book) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode book: %w", err)
	}
	if err := writeFileAtomic(s.home.BookRecordPath(b.ID), data); err != nil {
		return fmt.Errorf("failed to write book record: %w", err)
	}
	return nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
