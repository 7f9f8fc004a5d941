package home

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-doodlebook")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-doodlebook" {
			t.Errorf("expected path /tmp/test-doodlebook, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-doodlebook")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"BooksPath", dir.BooksPath(), "/tmp/test-doodlebook/books"},
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-doodlebook/config.yaml"},
		{"BookRecordPath", dir.BookRecordPath("abc"), "/tmp/test-doodlebook/books/abc/book.json"},
		{"MediaPath", dir.MediaPath("abc", "drawing.png"), "/tmp/test-doodlebook/books/abc/media/drawing.png"},
		{"ExportsDir", dir.ExportsDir(), "/tmp/test-doodlebook/exports"},
		{"PageImageName", PageImageName(3), "page_0003.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	bookDir := filepath.Join(tmpDir, "doodlebook-test")

	dir, err := New(bookDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}

	if _, err := os.Stat(dir.BooksPath()); os.IsNotExist(err) {
		t.Error("books directory should exist after EnsureExists")
	}

	if err := dir.EnsureMediaDir("b1"); err != nil {
		t.Fatalf("EnsureMediaDir failed: %v", err)
	}
	if _, err := os.Stat(dir.MediaDir("b1")); err != nil {
		t.Errorf("media directory missing: %v", err)
	}
}

func TestDir_ConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(tmpDir)

	if dir.ConfigExists() {
		t.Error("config should not exist initially")
	}

	configPath := dir.ConfigPath()
	if err := os.WriteFile(configPath, []byte("test: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if !dir.ConfigExists() {
		t.Error("config should exist after creation")
	}
}

func TestDir_Lock(t *testing.T) {
	dir, _ := New(filepath.Join(t.TempDir(), "home"))

	unlock, err := dir.Lock()
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if _, err := os.Stat(dir.LockPath()); err != nil {
		t.Errorf("lock file missing: %v", err)
	}

	if _, err := dir.Lock(); !errors.Is(err, ErrLocked) {
		t.Errorf("second Lock() error = %v, want ErrLocked", err)
	}

	if err := unlock(); err != nil {
		t.Fatalf("unlock error = %v", err)
	}
	unlock, err = dir.Lock()
	if err != nil {
		t.Fatalf("Lock() after unlock error = %v", err)
	}
	_ = unlock()
}

func TestDir_ExportPath(t *testing.T) {
	dir, _ := New(t.TempDir())

	tests := []struct {
		bookID, filename string
		wantErr          bool
	}{
		{"book1", "dragon-day.epub", false},
		{"book1", "../../../escaped.pdf", true},
		{"book1", "nested/escaped.pdf", true},
		{"book1", "..", true},
		{"book1", "", true},
		{"../book1", "story.pdf", true},
		{"..", "story.pdf", true},
		{`book\1`, "story.pdf", true},
	}
	for _, tt := range tests {
		path, err := dir.ExportPath(tt.bookID, tt.filename)
		if tt.wantErr {
			if !errors.Is(err, ErrOutsideHome) {
				t.Errorf("ExportPath(%q, %q) = %q, %v, want ErrOutsideHome", tt.bookID, tt.filename, path, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ExportPath(%q, %q) error = %v", tt.bookID, tt.filename, err)
			continue
		}
		if want := filepath.Join(dir.ExportsDir(), tt.bookID, tt.filename); path != want {
			t.Errorf("ExportPath(%q, %q) = %q, want %q", tt.bookID, tt.filename, path, want)
		}
	}

	path, err := dir.WriteExport("book1", "dragon-day.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("WriteExport() error = %v", err)
	}
	if data, err := os.ReadFile(path); err != nil || string(data) != "%PDF" {
		t.Errorf("export copy = %q, %v", data, err)
	}
	if _, err := dir.WriteExport("book1", "../../escaped.pdf", nil); !errors.Is(err, ErrOutsideHome) {
		t.Errorf("WriteExport(escape) error = %v", err)
	}
}
