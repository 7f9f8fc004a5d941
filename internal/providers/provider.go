package providers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackzampolin/doodlebook/internal/story"
)

// StoryAnalyzer reads a drawing and writes the story plan for it.
type StoryAnalyzer interface {
	Analyze(ctx context.Context, drawing []byte) (*story.Analysis, error)
}

// Illustrator paints one story page, using the drawing as the character
// reference.
type Illustrator interface {
	Illustrate(ctx context.Context, drawing []byte, character, prompt string) ([]byte, error)
}

// Animator renders the short movie of the drawing coming to life. onStatus
// receives human-readable progress while the job runs; it may be nil.
type Animator interface {
	Animate(ctx context.Context, drawing []byte, a *story.Analysis, onStatus func(string)) ([]byte, error)
}

// Provider is a named backend. Concrete providers implement one or more of
// the role interfaces above.
type Provider interface {
	Name() string
}

// Limited is implemented by providers that pace their own requests.
type Limited interface {
	RateLimiter() *RateLimiter
}

// ErrAPIKey is returned when a provider has no key or the key was refused.
var ErrAPIKey = errors.New("API key missing or invalid")

// IsAPIKeyError reports whether err came from a rejected or missing key.
func IsAPIKeyError(err error) bool {
	return errors.Is(err, ErrAPIKey)
}

// RateLimitError is returned when the provider answered 429.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// IsRateLimitError unwraps err to a RateLimitError.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := time.Parse(time.RFC1123, v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
