package epub

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/doodlebook/internal/story"
)

// FromStory loads a book record and its media into an epub Book. Pages whose
// illustrations are missing from the store are exported as text only.
func FromStory(ctx context.Context, store story.Store, b *story.Book) (Book, error) {
	if b.Analysis == nil {
		return Book{}, story.ErrNotAnalyzed
	}
	a := b.Analysis
	out := Book{
		ID:        b.ID,
		Title:     a.StoryTitle,
		Subject:   a.Subject,
		Artist:    a.ArtistName,
		Age:       a.Age,
		Grade:     a.Grade,
		Year:      a.Year,
		CreatedAt: b.CreatedAt,
	}

	cover, err := store.ReadMedia(ctx, b.ID, b.Drawing)
	if err != nil && !errors.Is(err, story.ErrNotFound) {
		return Book{}, fmt.Errorf("failed to read drawing: %w", err)
	}
	out.Cover = cover

	for i, p := range a.Pages {
		page := Page{Text: p.Text}
		if p.Image != "" {
			img, err := store.ReadMedia(ctx, b.ID, p.Image)
			switch {
			case err == nil:
				page.Image = img
			case !errors.Is(err, story.ErrNotFound):
				return Book{}, fmt.Errorf("failed to read page %d illustration: %w", i+1, err)
			}
		}
		out.Pages = append(out.Pages, page)
	}
	return out, nil
}
