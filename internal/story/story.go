// Package story defines the picture-book record produced from a drawing and
// the stores that persist it.
package story

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a book does not exist.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidMedia is returned for media names that could escape the book folder.
	ErrInvalidMedia = errors.New("invalid media name")
	// ErrNotAnalyzed is returned when an operation needs an analysis that is missing.
	ErrNotAnalyzed = errors.New("book has not been analyzed")
	// ErrInvalidStatus is returned when an operation is not allowed in the book's status.
	ErrInvalidStatus = errors.New("operation not allowed in current status")
	// ErrEmptyPage is returned when a refinement leaves a story page without text.
	ErrEmptyPage = errors.New("story page text cannot be empty")
	// ErrPageCount is returned when a refinement does not supply one text per page.
	ErrPageCount = errors.New("page count does not match the story")
)

// Status is the generation lifecycle of a book.
type Status string

const (
	StatusUploaded  Status = "uploaded"
	StatusAnalyzing Status = "analyzing"
	StatusRefining  Status = "refining"
	StatusAnimating Status = "animating"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
)

// MessageInterrupted is the error left on a book whose generation was cut
// short by a server restart.
const MessageInterrupted = "The magic was interrupted. Please try again."

// DrawingName is the media name of the uploaded drawing.
const DrawingName = "drawing.png"

// VideoName is the media name of the generated movie.
const VideoName = "movie.mp4"

// Page is one story page.
type Page struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"image_prompt"`
	// Image is the media name of the illustration, empty until it arrives.
	Image string `json:"image,omitempty"`
}

// Analysis is what the analyzer extracts from a drawing.
type Analysis struct {
	Subject             string `json:"subject"`
	CharacterAppearance string `json:"character_appearance"`
	Environment         string `json:"environment"`
	SuggestedAction     string `json:"suggested_action"`
	StoryTitle          string `json:"story_title"`
	Pages               []Page `json:"pages"`
	ArtistName          string `json:"artist_name"`
	Year                string `json:"year"`
	Grade               string `json:"grade"`
	Age                 string `json:"age"`
}

// Book is a drawing and everything generated from it.
type Book struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Drawing     string `json:"drawing"`
	DrawingType string `json:"drawing_type,omitempty"`

	Analysis *Analysis `json:"analysis,omitempty"`
	Video    string    `json:"video,omitempty"`

	Status   Status `json:"status"`
	Progress string `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewBook creates an uploaded book record for a stored drawing.
func NewBook(contentType string) *Book {
	now := time.Now().UTC()
	return &Book{
		ID:          uuid.New().String(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Drawing:     DrawingName,
		DrawingType: contentType,
		Status:      StatusUploaded,
	}
}

// Title returns the story title, or an empty string before analysis.
func (b *Book) Title() string {
	if b.Analysis == nil {
		return ""
	}
	return b.Analysis.StoryTitle
}

// PageCount returns the number of story pages.
func (b *Book) PageCount() int {
	if b.Analysis == nil {
		return 0
	}
	return len(b.Analysis.Pages)
}

// IllustratedCount returns how many pages have an illustration.
func (b *Book) IllustratedCount() int {
	if b.Analysis == nil {
		return 0
	}
	n := 0
	for _, p := range b.Analysis.Pages {
		if p.Image != "" {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of b.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	c := *b
	if b.Analysis != nil {
		a := *b.Analysis
		a.Pages = append([]Page(nil), b.Analysis.Pages...)
		c.Analysis = &a
	}
	return &c
}

// ValidMediaName reports whether name is a plain file name.
func ValidMediaName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}
