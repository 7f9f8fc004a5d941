package story

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackzampolin/doodlebook/internal/home"
)

func analyzedBook() *Book {
	b := NewBook("image/png")
	b.Status = StatusRefining
	b.Analysis = &Analysis{
		Subject:    "a purple dragon",
		StoryTitle: "Dragon Day",
		Pages: []Page{
			{Text: "Once upon a time.", ImagePrompt: "dragon wakes"},
			{Text: "The dragon flew.", ImagePrompt: "dragon flies"},
		},
		ArtistName: "Maya",
	}
	return b
}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	fs, err := NewFileStore(h, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			b := analyzedBook()
			if err := s.Create(ctx, b); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if err := s.Create(ctx, b); err == nil {
				t.Error("duplicate Create() succeeded")
			}

			got, err := s.Get(ctx, b.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Title() != "Dragon Day" || got.PageCount() != 2 {
				t.Errorf("Get() = %+v", got)
			}

			// Returned books are copies.
			got.Analysis.Pages[0].Text = "mutated"
			again, _ := s.Get(ctx, b.ID)
			if again.Analysis.Pages[0].Text != "Once upon a time." {
				t.Error("store shares memory with callers")
			}

			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}

			updated, err := s.SetPageImage(ctx, b.ID, 1, home.PageImageName(2))
			if err != nil {
				t.Fatalf("SetPageImage() error = %v", err)
			}
			if updated.Analysis.Pages[1].Image != "page_0002.png" || updated.IllustratedCount() != 1 {
				t.Errorf("page image not recorded: %+v", updated.Analysis.Pages)
			}
			if _, err := s.SetPageImage(ctx, b.ID, 5, "x.png"); err == nil {
				t.Error("SetPageImage out of range succeeded")
			}

			failed := errors.New("boom")
			if _, err := s.Update(ctx, b.ID, func(b *Book) error {
				b.Status = StatusFailed
				return failed
			}); !errors.Is(err, failed) {
				t.Errorf("Update() error = %v", err)
			}
			if cur, _ := s.Get(ctx, b.ID); cur.Status != StatusRefining {
				t.Error("failed Update wrote changes")
			}

			if err := s.WriteMedia(ctx, b.ID, DrawingName, []byte("png")); err != nil {
				t.Fatalf("WriteMedia() error = %v", err)
			}
			data, err := s.ReadMedia(ctx, b.ID, DrawingName)
			if err != nil || string(data) != "png" {
				t.Errorf("ReadMedia() = %q, %v", data, err)
			}
			if err := s.WriteMedia(ctx, b.ID, "../escape", nil); !errors.Is(err, ErrInvalidMedia) {
				t.Errorf("WriteMedia(../escape) error = %v", err)
			}
			if _, err := s.ReadMedia(ctx, b.ID, VideoName); !errors.Is(err, ErrNotFound) {
				t.Errorf("ReadMedia(missing) error = %v", err)
			}

			older := NewBook("image/jpeg")
			older.CreatedAt = b.CreatedAt.Add(-time.Hour)
			if err := s.Create(ctx, older); err != nil {
				t.Fatalf("Create(older) error = %v", err)
			}
			list, _ := s.List(ctx)
			if len(list) != 2 || list[0].ID != b.ID {
				t.Errorf("List() not newest first")
			}

			if err := s.Delete(ctx, older.ID); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := s.Delete(ctx, older.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("second Delete() error = %v", err)
			}
		})
	}
}

func TestFileStore_Reload(t *testing.T) {
	ctx := context.Background()
	h, _ := home.New(t.TempDir())

	s, err := NewFileStore(h, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	b := analyzedBook()
	if err := s.Create(ctx, b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.Update(ctx, b.ID, func(b *Book) error {
		b.Status = StatusReady
		b.Video = VideoName
		return nil
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	reopened, err := NewFileStore(h, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	got, err := reopened.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get() after reload error = %v", err)
	}
	if got.Status != StatusReady || got.Video != VideoName || got.Title() != "Dragon Day" {
		t.Errorf("reloaded book = %+v", got)
	}
}

func TestFileStore_MediaStaysInsideBooks(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	h, _ := home.New(filepath.Join(root, "home"))
	s, err := NewFileStore(h, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	// A media folder next to the home directory, reachable with "..".
	secret := filepath.Join(root, "secret", "media")
	if err := os.MkdirAll(secret, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(secret, "key.txt"), []byte("s3cr3t"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"../../secret", "..", "missing"} {
		data, err := s.ReadMedia(ctx, id, "key.txt")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("ReadMedia(%q) = %q, %v, want ErrNotFound", id, data, err)
		}
	}

	b := NewBook("image/png")
	b.ID = "../../outside"
	if err := s.Create(ctx, b); err == nil {
		t.Error("Create() accepted an id with a path in it")
	}
}

func TestFileStore_RecoversInterruptedBooks(t *testing.T) {
	ctx := context.Background()
	h, _ := home.New(t.TempDir())
	s, err := NewFileStore(h, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	tests := []struct {
		status Status
		want   Status
	}{
		{StatusAnalyzing, StatusFailed},
		{StatusAnimating, StatusRefining},
		{StatusReady, StatusReady},
	}
	ids := make([]string, len(tests))
	for i, tt := range tests {
		b := analyzedBook()
		b.Status = tt.status
		b.Progress = "Painting the world..."
		if err := s.Create(ctx, b); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids[i] = b.ID
	}

	for round := 0; round < 2; round++ {
		reopened, err := NewFileStore(h, nil)
		if err != nil {
			t.Fatalf("NewFileStore() error = %v", err)
		}
		for i, tt := range tests {
			got, err := reopened.Get(ctx, ids[i])
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Status != tt.want {
				t.Errorf("round %d: %s reloaded as %s, want %s", round, tt.status, got.Status, tt.want)
			}
			interrupted := tt.status != tt.want
			if interrupted && (got.Error != MessageInterrupted || got.Progress != "") {
				t.Errorf("round %d: recovered book = error %q, progress %q", round, got.Error, got.Progress)
			}
			if !interrupted && got.Error != "" {
				t.Errorf("round %d: untouched book got error %q", round, got.Error)
			}
		}
	}
}

func TestRefine(t *testing.T) {
	str := func(s string) *string { return &s }

	t.Run("applies edits", func(t *testing.T) {
		b := analyzedBook()
		err := Refine(b, Refinement{
			Title:      str("  Dragon Night "),
			ArtistName: str("Leo"),
			Pages:      []string{"First.", "Second."},
		})
		if err != nil {
			t.Fatalf("Refine() error = %v", err)
		}
		if b.Title() != "Dragon Night" || b.Analysis.ArtistName != "Leo" {
			t.Errorf("metadata not applied: %+v", b.Analysis)
		}
		if b.Analysis.Subject != "a purple dragon" {
			t.Error("nil field overwritten")
		}
		if b.Analysis.Pages[1].Text != "Second." || b.Analysis.Pages[1].ImagePrompt != "dragon flies" {
			t.Errorf("page edit wrong: %+v", b.Analysis.Pages[1])
		}
	})

	t.Run("rejects empty page", func(t *testing.T) {
		b := analyzedBook()
		err := Refine(b, Refinement{Pages: []string{"ok", "   "}})
		if !errors.Is(err, ErrEmptyPage) {
			t.Errorf("Refine() error = %v, want ErrEmptyPage", err)
		}
		if b.Analysis.Pages[0].Text != "Once upon a time." {
			t.Error("rejected refinement partially applied")
		}
	})

	t.Run("rejects page count mismatch", func(t *testing.T) {
		err := Refine(analyzedBook(), Refinement{Pages: []string{"one"}})
		if !errors.Is(err, ErrPageCount) {
			t.Errorf("err = %v, want ErrPageCount", err)
		}
	})

	t.Run("requires refining status", func(t *testing.T) {
		b := analyzedBook()
		b.Status = StatusAnimating
		if err := Refine(b, Refinement{Title: str("x")}); !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("Refine() error = %v, want ErrInvalidStatus", err)
		}
	})

	t.Run("requires analysis", func(t *testing.T) {
		if err := Refine(NewBook("image/png"), Refinement{}); !errors.Is(err, ErrNotAnalyzed) {
			t.Errorf("Refine() error = %v, want ErrNotAnalyzed", err)
		}
	})
}

func TestValidMediaName(t *testing.T) {
	valid := []string{"drawing.png", "page_0001.png", "movie.mp4"}
	invalid := []string{"", ".", "..", "a/b.png", `a\b`, "../x", "x..y"}
	for _, n := range valid {
		if !ValidMediaName(n) {
			t.Errorf("ValidMediaName(%q) = false", n)
		}
	}
	for _, n := range invalid {
		if ValidMediaName(n) {
			t.Errorf("ValidMediaName(%q) = true", n)
		}
	}
}
