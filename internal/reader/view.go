package reader

import (
	"context"
	"fmt"

	"github.com/jackzampolin/doodlebook/internal/story"
	"github.com/jackzampolin/doodlebook/internal/storybook"
)

// PlaceholderText is shown on a story spread whose illustration has not
// arrived yet.
const PlaceholderText = "Generating Story..."

// MediaURLFunc builds the client URL of a book's media file.
type MediaURLFunc func(bookID, name string) string

// DefaultMediaURL serves media from the book media endpoint.
func DefaultMediaURL(bookID, name string) string {
	return fmt.Sprintf("/api/books/%s/media/%s", bookID, name)
}

// Credits is the artist block on the cover.
type Credits struct {
	ArtistName string `json:"artist_name,omitempty"`
	Age        string `json:"age,omitempty"`
	Grade      string `json:"grade,omitempty"`
	Year       string `json:"year,omitempty"`
}

// Indicator is one dot in the progress footer.
type Indicator struct {
	Index      int  `json:"index"`
	Current    bool `json:"current"`
	Visited    bool `json:"visited"`
	Accessible bool `json:"accessible"`
}

// View is what the client renders for the current spread.
type View struct {
	SessionID string               `json:"session_id"`
	BookID    string               `json:"book_id"`
	Kind      storybook.SpreadKind `json:"kind"`
	State     storybook.State      `json:"state"`

	Title   string   `json:"title"`
	Subject string   `json:"subject"`
	Credits *Credits `json:"credits,omitempty"`

	// Story spreads only.
	Text        string `json:"text,omitempty"`
	PageLabel   string `json:"page_label,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`

	// Cover and end spreads play the movie.
	VideoURL string `json:"video_url,omitempty"`

	Progress      float64     `json:"progress"`
	Footer        string      `json:"footer"`
	Indicators    []Indicator `json:"indicators"`
	CanPrev       bool        `json:"can_prev"`
	CanNext       bool        `json:"can_next"`
	ShareUnlocked bool        `json:"share_unlocked"`
	UnlockBanner  bool        `json:"unlock_banner"`
	KeyboardHint  bool        `json:"keyboard_hint"`
	DownloadName  string      `json:"download_name"`
}

// View projects the session onto the current spread using the latest book
// record, so illustrations that arrive mid-read show up.
func (s *Session) View(ctx context.Context, mediaURL MediaURLFunc) (*View, error) {
	if mediaURL == nil {
		mediaURL = DefaultMediaURL
	}
	b, err := s.Book(ctx)
	if err != nil {
		return nil, err
	}
	if b.Analysis == nil {
		return nil, ErrBookNotReady
	}
	return project(s.id, b, s.nav.State(), s.UnlockBanner(), s.KeyboardHint(), mediaURL), nil
}

func project(sessionID string, b *story.Book, st storybook.State, banner, hint bool, mediaURL MediaURLFunc) *View {
	a := b.Analysis
	idx := st.CurrentIndex
	v := &View{
		SessionID:     sessionID,
		BookID:        b.ID,
		Kind:          storybook.KindOf(idx, st.TotalSpreads),
		State:         st,
		Title:         a.StoryTitle,
		Subject:       a.Subject,
		Progress:      Progress(idx, st.TotalSpreads),
		Footer:        FooterLabel(idx, st.TotalSpreads),
		CanPrev:       !st.Transitioning && idx > 0,
		CanNext:       !st.Transitioning && idx < st.TotalSpreads-1,
		ShareUnlocked: st.ReadingCompleted,
		UnlockBanner:  banner,
		KeyboardHint:  hint,
		DownloadName:  DownloadName(a.StoryTitle),
	}
	if a.ArtistName != "" {
		v.Credits = &Credits{ArtistName: a.ArtistName, Age: a.Age, Grade: a.Grade, Year: a.Year}
	}

	for i := 0; i < st.TotalSpreads; i++ {
		v.Indicators = append(v.Indicators, Indicator{
			Index:      i,
			Current:    i == idx,
			Visited:    i <= st.HighWaterMark,
			Accessible: st.Accessible(i),
		})
	}

	page, ok := storybook.StoryPage(idx, st.TotalSpreads)
	if !ok || page >= len(a.Pages) {
		if b.Video != "" {
			v.VideoURL = mediaURL(b.ID, b.Video)
		}
		return v
	}
	p := a.Pages[page]
	v.Text = p.Text
	v.PageLabel = fmt.Sprintf("Page %d of %d", idx, len(a.Pages))
	if p.Image != "" {
		v.ImageURL = mediaURL(b.ID, p.Image)
	} else {
		v.Placeholder = PlaceholderText
	}
	return v
}

// Progress is the reading progress bar as a percentage.
func Progress(index, total int) float64 {
	if total <= 1 {
		return 100
	}
	return float64(index) / float64(total-1) * 100
}

// FooterLabel is the caption under the progress bar.
func FooterLabel(index, total int) string {
	switch storybook.KindOf(index, total) {
	case storybook.SpreadCover:
		return "START"
	case storybook.SpreadEnd:
		return "THE END"
	default:
		return fmt.Sprintf("PAGE %d", index)
	}
}
