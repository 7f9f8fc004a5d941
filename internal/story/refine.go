package story

import (
	"fmt"
	"strings"
)

// Refinement holds user edits applied before animation. Nil fields are left
// unchanged.
type Refinement struct {
	Title      *string  `json:"title,omitempty"`
	Subject    *string  `json:"subject,omitempty"`
	ArtistName *string  `json:"artist_name,omitempty"`
	Year       *string  `json:"year,omitempty"`
	Grade      *string  `json:"grade,omitempty"`
	Age        *string  `json:"age,omitempty"`
	Pages      []string `json:"pages,omitempty"`
}

// Refine applies r to b. Only analyzed books that have not started animating
// can be refined.
func Refine(b *Book, r Refinement) error {
	if b.Analysis == nil {
		return ErrNotAnalyzed
	}
	if b.Status != StatusRefining {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, b.Status)
	}
	if r.Pages != nil && len(r.Pages) != len(b.Analysis.Pages) {
		return fmt.Errorf("%w: expected %d, got %d", ErrPageCount, len(b.Analysis.Pages), len(r.Pages))
	}
	for i, text := range r.Pages {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: page %d", ErrEmptyPage, i+1)
		}
	}

	a := b.Analysis
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&a.StoryTitle, r.Title)
	set(&a.Subject, r.Subject)
	set(&a.ArtistName, r.ArtistName)
	set(&a.Year, r.Year)
	set(&a.Grade, r.Grade)
	set(&a.Age, r.Age)
	for i, text := range r.Pages {
		a.Pages[i].Text = strings.TrimSpace(text)
	}
	return nil
}
