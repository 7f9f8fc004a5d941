package reader

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Share is everything a client needs to share a finished book.
type Share struct {
	URL string `json:"url"`
	// Title and Text are the native share sheet payload.
	Title string `json:"title"`
	Text  string `json:"text"`
	// Clipboard is the copy-to-clipboard fallback.
	Clipboard string `json:"clipboard"`
	Mailto    string `json:"mailto"`
	X         string `json:"x"`
	Facebook  string `json:"facebook"`
}

// ShareLinks returns the share payload. It fails with ErrShareLocked until
// the reader has turned forward onto the end spread.
func (s *Session) ShareLinks(ctx context.Context) (*Share, error) {
	if !s.nav.State().ReadingCompleted {
		return nil, ErrShareLocked
	}
	b, err := s.Book(ctx)
	if err != nil {
		return nil, err
	}
	if b.Analysis == nil {
		return nil, ErrBookNotReady
	}
	return BuildShare(shareURL(s.cfg.ShareURL), b.Analysis.StoryTitle, b.Analysis.Subject), nil
}

// BuildShare renders the share payload for a story.
func BuildShare(link, title, subject string) *Share {
	social := fmt.Sprintf("Check out this beautiful story I made! It's called \"%s\".", title)
	sh := &Share{
		URL:   link,
		Title: "Story: " + title,
		Text: fmt.Sprintf("Check out this magical story I made with my drawing! It's called \"%s\". Starring %s!",
			title, subject),
		X:        "https://twitter.com/intent/tweet?text=" + encodeComponent(social) + "&url=" + encodeComponent(link),
		Facebook: "https://www.facebook.com/sharer/sharer.php?u=" + encodeComponent(link),
	}
	sh.Clipboard = sh.Text + " " + sh.URL
	sh.Mailto = "mailto:?subject=" + encodeComponent(sh.Title) + "&body=" + encodeComponent(sh.Clipboard)
	return sh
}

func shareURL(configured string) string {
	u, err := url.Parse(configured)
	if err != nil || !strings.HasPrefix(u.Scheme, "http") || u.Host == "" {
		return DefaultShareURL
	}
	return u.String()
}

// encodeComponent escapes s for a query value with spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug lowercases title and replaces each whitespace run with a dash.
func Slug(title string) string {
	return strings.ToLower(whitespace.ReplaceAllString(title, "-"))
}

// DownloadName returns the file name offered when saving a book's movie.
func DownloadName(title string) string {
	return Slug(title) + "-movie.mp4"
}
