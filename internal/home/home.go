package home

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const (
	// DefaultDirName is the default name for the doodlebook home directory.
	DefaultDirName = ".doodlebook"

	// BooksDirName is the subdirectory holding one folder per book.
	BooksDirName = "books"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// BookFileName is the JSON record stored in each book folder.
	BookFileName = "book.json"

	// LockFileName guards the home directory against a second server.
	LockFileName = "doodlebook.lock"
)

// ErrLocked is returned by Lock when another process holds the home directory.
var ErrLocked = errors.New("home directory is in use by another doodlebook server")

// Dir represents the doodlebook home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.doodlebook).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// BooksPath returns the directory containing all book folders.
func (d *Dir) BooksPath() string {
	return filepath.Join(d.path, BooksDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.BooksPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create books directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// BookDir returns the folder for a single book.
func (d *Dir) BookDir(bookID string) string {
	return filepath.Join(d.BooksPath(), bookID)
}

// BookRecordPath returns the path of a book's JSON record.
func (d *Dir) BookRecordPath(bookID string) string {
	return filepath.Join(d.BookDir(bookID), BookFileName)
}

// MediaDir returns the directory for a book's drawing, illustrations and movie.
func (d *Dir) MediaDir(bookID string) string {
	return filepath.Join(d.BookDir(bookID), "media")
}

// MediaPath returns the path to a named media file of a book.
func (d *Dir) MediaPath(bookID, name string) string {
	return filepath.Join(d.MediaDir(bookID), name)
}

// PageImageName returns the media name of a story page illustration.
// Pages are 1-indexed.
func PageImageName(pageNum int) string {
	return fmt.Sprintf("page_%04d.png", pageNum)
}

// EnsureMediaDir creates the media directory for a book.
func (d *Dir) EnsureMediaDir(bookID string) error {
	return os.MkdirAll(d.MediaDir(bookID), 0o755)
}

// ExportsDir returns the directory for exported files (epub, pdf).
func (d *Dir) ExportsDir() string {
	return filepath.Join(d.path, "exports")
}

// EnsureExportsDir creates the exports directory.
func (d *Dir) EnsureExportsDir() error {
	return os.MkdirAll(d.ExportsDir(), 0o755)
}

// ErrOutsideHome is returned when a file path would leave its directory.
var ErrOutsideHome = errors.New("path escapes the home directory")

// ExportPath returns {exports}/{bookID}/{filename}, or ErrOutsideHome when
// either part would resolve elsewhere.
func (d *Dir) ExportPath(bookID, filename string) (string, error) {
	if !plainName(bookID) || !plainName(filename) {
		return "", fmt.Errorf("%w: %s/%s", ErrOutsideHome, bookID, filename)
	}
	exports := d.ExportsDir()
	path := filepath.Join(exports, bookID, filename)
	if rel, err := filepath.Rel(exports, path); err != nil || rel != filepath.Join(bookID, filename) {
		return "", fmt.Errorf("%w: %s/%s", ErrOutsideHome, bookID, filename)
	}
	return path, nil
}

func plainName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// WriteExport keeps a copy of an exported file under {exports}/{bookID}/.
func (d *Dir) WriteExport(bookID, filename string, data []byte) (string, error) {
	path, err := d.ExportPath(bookID, filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create exports directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// LockPath returns the path of the server lock file.
func (d *Dir) LockPath() string {
	return filepath.Join(d.path, LockFileName)
}

// Lock takes an exclusive, non-blocking lock on the home directory.
// The returned func releases it.
func (d *Dir) Lock() (func() error, error) {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	lock := flock.New(d.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return lock.Unlock, nil
}
