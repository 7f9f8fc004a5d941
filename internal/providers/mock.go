package providers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/doodlebook/internal/story"
)

const MockName = "mock"

// mockPNG is a 1x1 transparent PNG.
var mockPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// MockPNG returns the placeholder image produced by Mock.Illustrate.
func MockPNG() []byte {
	return append([]byte(nil), mockPNG...)
}

// Mock implements every provider role without network access. Used in tests
// and when no API key is configured.
type Mock struct {
	// Configurable behavior
	Latency    time.Duration
	ShouldFail bool
	FailAfter  int   // fail after N requests (0 = never)
	Err        error // returned instead of the generic failure when set

	Analysis *story.Analysis
	Image    []byte
	Video    []byte

	// FailPages makes Illustrate fail for these prompts.
	FailPages map[string]bool

	requestCount atomic.Int64
}

// NewMock creates a mock with a small three page story.
func NewMock() *Mock {
	return &Mock{
		Latency: 10 * time.Millisecond,
		Analysis: &story.Analysis{
			Subject:             "a friendly purple dragon",
			CharacterAppearance: "round purple body, tiny green wings, big smile",
			Environment:         "candy forest",
			SuggestedAction:     "dancing between lollipop trees",
			StoryTitle:          "The Dancing Dragon",
			Pages: []story.Page{
				{Text: "Dot the dragon woke up in the candy forest.", ImagePrompt: "dragon yawning under a lollipop tree"},
				{Text: "She heard music and started to dance.", ImagePrompt: "dragon dancing with butterflies"},
				{Text: "All her friends danced with her until the stars came out.", ImagePrompt: "dragon and friends under starry sky"},
			},
			ArtistName: "Maya",
			Year:       "2024",
			Grade:      "1",
			Age:        "6",
		},
		Image: mockPNG,
		Video: []byte("mock-mp4"),
	}
}

// Name returns the provider identifier.
func (m *Mock) Name() string {
	return MockName
}

func (m *Mock) begin(ctx context.Context) error {
	count := m.requestCount.Add(1)
	if m.ShouldFail || (m.FailAfter > 0 && int(count) > m.FailAfter) {
		if m.Err != nil {
			return m.Err
		}
		return fmt.Errorf("mock provider configured to fail")
	}
	select {
	case <-time.After(m.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Analyze returns a copy of m.Analysis.
func (m *Mock) Analyze(ctx context.Context, drawing []byte) (*story.Analysis, error) {
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	a := *m.Analysis
	a.Pages = append([]story.Page(nil), m.Analysis.Pages...)
	return &a, nil
}

// Illustrate returns m.Image.
func (m *Mock) Illustrate(ctx context.Context, drawing []byte, character, prompt string) ([]byte, error) {
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	if m.FailPages[prompt] {
		return nil, fmt.Errorf("mock illustration failed for %q", prompt)
	}
	return append([]byte(nil), m.Image...), nil
}

// Animate reports the same progress as a real job and returns m.Video.
func (m *Mock) Animate(ctx context.Context, drawing []byte, a *story.Analysis, onStatus func(string)) ([]byte, error) {
	if onStatus != nil {
		onStatus(StatusWaking)
	}
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	if onStatus != nil {
		onStatus(StatusPainting)
	}
	return append([]byte(nil), m.Video...), nil
}

// RequestCount returns the number of requests made.
func (m *Mock) RequestCount() int64 {
	return m.requestCount.Load()
}

// Reset resets the request counter.
func (m *Mock) Reset() {
	m.requestCount.Store(0)
}

var (
	_ StoryAnalyzer = (*Mock)(nil)
	_ Illustrator   = (*Mock)(nil)
	_ Animator      = (*Mock)(nil)
)
