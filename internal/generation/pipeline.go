// Package generation turns an uploaded drawing into a finished book: story
// analysis, the movie, and one illustration per page.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/doodlebook/internal/home"
	"github.com/jackzampolin/doodlebook/internal/metrics"
	"github.com/jackzampolin/doodlebook/internal/providers"
	"github.com/jackzampolin/doodlebook/internal/story"
)

// DefaultMaxWorkers bounds concurrent illustration requests per book.
const DefaultMaxWorkers = 4

// maxThrottleRetries is how many extra attempts a page gets after a 429.
const maxThrottleRetries = 2

// Config selects providers by registry name.
type Config struct {
	Analyzer    string
	Illustrator string
	Animator    string
	MaxWorkers  int
}

// PageReadyFunc is called once per page as soon as its illustration is stored.
type PageReadyFunc func(bookID string, page int)

// Pipeline runs generation steps against a store and provider registry.
type Pipeline struct {
	store    story.Store
	registry *providers.Registry
	logger   *slog.Logger
	metrics  *metrics.Recorder

	mu        sync.RWMutex
	cfg       Config
	listeners []PageReadyFunc

	// Background work is tied to ctx and tracked by wg. bgMu orders wg.Add
	// against Close so nothing is added once Close has begun waiting.
	ctx    context.Context
	cancel context.CancelFunc
	bgMu   sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// ErrClosed is returned when work is started on a closed pipeline.
var ErrClosed = errors.New("generation pipeline is closed")

// New creates a pipeline. Call Close to stop background work.
func New(store story.Store, registry *providers.Registry, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		store:    store,
		registry: registry,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	p.SetConfig(cfg)
	return p
}

// SetConfig replaces provider selection and worker limits. Used on config
// hot-reload.
func (p *Pipeline) SetConfig(cfg Config) {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}

// Config returns the current configuration.
func (p *Pipeline) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// SetRecorder records every provider call to r. Call before starting work.
func (p *Pipeline) SetRecorder(r *metrics.Recorder) {
	p.metrics = r
}

// OnPageReady registers a listener for per-page media-ready signals.
func (p *Pipeline) OnPageReady(fn PageReadyFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Close cancels background work and waits for it to stop.
func (p *Pipeline) Close() {
	p.bgMu.Lock()
	p.closed = true
	p.bgMu.Unlock()
	p.cancel()
	p.wg.Wait()
}

// Wait blocks until all background work has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) goBackground(name, bookID string, fn func(ctx context.Context) error) error {
	p.bgMu.Lock()
	defer p.bgMu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := fn(p.ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("background generation failed", "step", name, "book_id", bookID, "error", err)
		}
	}()
	return nil
}

func (p *Pipeline) isClosed() bool {
	p.bgMu.Lock()
	defer p.bgMu.Unlock()
	return p.closed
}

// StartAnalyze marks the book as analyzing and runs Analyze in the background.
func (p *Pipeline) StartAnalyze(ctx context.Context, bookID string) error {
	if p.isClosed() {
		return ErrClosed
	}
	if _, err := p.store.Update(ctx, bookID, markAnalyzing); err != nil {
		return err
	}
	return p.goBackground("analyze", bookID, func(ctx context.Context) error {
		return p.analyze(ctx, bookID)
	})
}

// Analyze reads the drawing and stores the story plan. On failure the book
// returns to uploaded with a user-facing message.
func (p *Pipeline) Analyze(ctx context.Context, bookID string) error {
	if _, err := p.store.Update(ctx, bookID, markAnalyzing); err != nil {
		return err
	}
	return p.analyze(ctx, bookID)
}

func markAnalyzing(b *story.Book) error {
	switch b.Status {
	case story.StatusUploaded, story.StatusFailed:
	default:
		return fmt.Errorf("%w: %s", story.ErrInvalidStatus, b.Status)
	}
	b.Status = story.StatusAnalyzing
	b.Progress = ProgressAnalyzing
	b.Error = ""
	return nil
}

func (p *Pipeline) analyze(ctx context.Context, bookID string) error {
	analysis, err := p.runAnalyzer(ctx, bookID)
	if err != nil {
		p.logger.Warn("analysis failed", "book_id", bookID, "error", err)
		_, uerr := p.store.Update(context.WithoutCancel(ctx), bookID, func(b *story.Book) error {
			b.Status = story.StatusUploaded
			b.Progress = ""
			b.Error = MessageAnalyzeFailed
			return nil
		})
		return errors.Join(err, uerr)
	}

	_, err = p.store.Update(ctx, bookID, func(b *story.Book) error {
		b.Analysis = analysis
		b.Status = story.StatusRefining
		b.Progress = ""
		return nil
	})
	if err != nil {
		return err
	}
	p.logger.Info("drawing analyzed", "book_id", bookID, "title", analysis.StoryTitle, "pages", len(analysis.Pages))
	return nil
}

func (p *Pipeline) runAnalyzer(ctx context.Context, bookID string) (*story.Analysis, error) {
	name := p.Config().Analyzer
	analyzer, err := p.registry.Analyzer(name)
	if err != nil {
		return nil, err
	}
	drawing, err := p.store.ReadMedia(ctx, bookID, story.DrawingName)
	if err != nil {
		return nil, fmt.Errorf("failed to read drawing: %w", err)
	}
	start := time.Now()
	analysis, err := analyzer.Analyze(ctx, drawing)
	p.metrics.RecordCall(metrics.RecordOpts{BookID: bookID, Stage: metrics.StageAnalyze, Provider: name}, start, err)
	return analysis, err
}

// StartAnimate marks the book as animating and runs the movie and
// illustration steps in the background.
func (p *Pipeline) StartAnimate(ctx context.Context, bookID string) error {
	if p.isClosed() {
		return ErrClosed
	}
	if _, err := p.store.Update(ctx, bookID, markAnimating); err != nil {
		return err
	}
	return p.goBackground("animate", bookID, func(ctx context.Context) error {
		if err := p.animate(ctx, bookID); err != nil {
			return err
		}
		return p.Illustrate(ctx, bookID)
	})
}

// Animate renders the movie. On success the book is ready and page
// illustration starts in the background; reading never waits for it.
func (p *Pipeline) Animate(ctx context.Context, bookID string) error {
	if _, err := p.store.Update(ctx, bookID, markAnimating); err != nil {
		return err
	}
	if err := p.animate(ctx, bookID); err != nil {
		return err
	}
	if err := p.goBackground("illustrate", bookID, func(ctx context.Context) error {
		return p.Illustrate(ctx, bookID)
	}); err != nil {
		p.logger.Warn("illustration not started", "book_id", bookID, "error", err)
	}
	return nil
}

func markAnimating(b *story.Book) error {
	if b.Analysis == nil {
		return story.ErrNotAnalyzed
	}
	if b.Status != story.StatusRefining {
		return fmt.Errorf("%w: %s", story.ErrInvalidStatus, b.Status)
	}
	b.Status = story.StatusAnimating
	b.Error = ""
	return nil
}

func (p *Pipeline) animate(ctx context.Context, bookID string) error {
	err := p.runAnimator(ctx, bookID)
	if err != nil {
		p.logger.Warn("animation failed", "book_id", bookID, "error", err)
		msg := MessageGeneric
		if isAPIKeyFailure(err) {
			msg = MessageAPIKey
		}
		_, uerr := p.store.Update(context.WithoutCancel(ctx), bookID, func(b *story.Book) error {
			b.Status = story.StatusRefining
			b.Progress = ""
			b.Error = msg
			return nil
		})
		return errors.Join(err, uerr)
	}
	p.logger.Info("movie ready", "book_id", bookID)
	return nil
}

func (p *Pipeline) runAnimator(ctx context.Context, bookID string) error {
	name := p.Config().Animator
	animator, err := p.registry.Animator(name)
	if err != nil {
		return err
	}
	book, err := p.store.Get(ctx, bookID)
	if err != nil {
		return err
	}
	drawing, err := p.store.ReadMedia(ctx, bookID, story.DrawingName)
	if err != nil {
		return fmt.Errorf("failed to read drawing: %w", err)
	}

	onStatus := func(s string) {
		if _, err := p.store.Update(ctx, bookID, func(b *story.Book) error {
			b.Progress = s
			return nil
		}); err != nil {
			p.logger.Debug("progress update failed", "book_id", bookID, "error", err)
		}
	}

	start := time.Now()
	video, err := animator.Animate(ctx, drawing, book.Analysis, onStatus)
	p.metrics.RecordCall(metrics.RecordOpts{BookID: bookID, Stage: metrics.StageAnimate, Provider: name}, start, err)
	if err != nil {
		return err
	}
	if err := p.store.WriteMedia(ctx, bookID, story.VideoName, video); err != nil {
		return fmt.Errorf("failed to store movie: %w", err)
	}
	_, err = p.store.Update(ctx, bookID, func(b *story.Book) error {
		b.Video = story.VideoName
		b.Status = story.StatusReady
		b.Progress = ""
		return nil
	})
	return err
}

// isAPIKeyFailure matches rejected keys from any provider, including ones
// that only report it in the message text.
func isAPIKeyFailure(err error) bool {
	if providers.IsAPIKeyError(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "API key") || strings.Contains(msg, "Requested entity was not found")
}

// Illustrate paints every page that has no illustration yet, with at most
// MaxWorkers requests in flight. Each page is stored and signalled as soon
// as it arrives. One page failing does not stop the others.
func (p *Pipeline) Illustrate(ctx context.Context, bookID string) error {
	cfg := p.Config()
	illustrator, err := p.registry.Illustrator(cfg.Illustrator)
	if err != nil {
		return err
	}
	book, err := p.store.Get(ctx, bookID)
	if err != nil {
		return err
	}
	if book.Analysis == nil {
		return story.ErrNotAnalyzed
	}
	drawing, err := p.store.ReadMedia(ctx, bookID, story.DrawingName)
	if err != nil {
		return fmt.Errorf("failed to read drawing: %w", err)
	}

	var (
		g      errgroup.Group
		errMu  sync.Mutex
		failed []error
	)
	g.SetLimit(cfg.MaxWorkers)

	character := book.Analysis.CharacterAppearance
	for i, page := range book.Analysis.Pages {
		if page.Image != "" {
			continue
		}
		g.Go(func() error {
			if err := p.illustratePage(ctx, illustrator, cfg.Illustrator, bookID, drawing, character, i, page.ImagePrompt); err != nil {
				p.logger.Warn("page illustration failed", "book_id", bookID, "page", i+1, "error", err)
				errMu.Lock()
				failed = append(failed, fmt.Errorf("page %d: %w", i+1, err))
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		return errors.Join(failed...)
	}
	p.logger.Info("all pages illustrated", "book_id", bookID, "pages", len(book.Analysis.Pages))
	return nil
}

func (p *Pipeline) illustratePage(ctx context.Context, illustrator providers.Illustrator, provider, bookID string, drawing []byte, character string, page int, prompt string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := home.PageImageName(page + 1)
	img, err := p.illustrateThrottled(ctx, illustrator, provider, bookID, name, drawing, character, prompt)
	if err != nil {
		return err
	}
	if err := p.store.WriteMedia(ctx, bookID, name, img); err != nil {
		return err
	}
	if _, err := p.store.SetPageImage(ctx, bookID, page, name); err != nil {
		return err
	}

	p.mu.RLock()
	listeners := append([]PageReadyFunc(nil), p.listeners...)
	p.mu.RUnlock()
	for _, fn := range listeners {
		fn(bookID, page)
	}
	return nil
}

// illustrateThrottled asks for one page, trying again when the provider
// answers 429. The provider's own limiter holds the retry back until its
// cooldown ends; RetryAfter covers providers without one.
func (p *Pipeline) illustrateThrottled(ctx context.Context, illustrator providers.Illustrator, provider, bookID, name string, drawing []byte, character, prompt string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		start := time.Now()
		img, err := illustrator.Illustrate(ctx, drawing, character, prompt)
		p.metrics.RecordCall(metrics.RecordOpts{BookID: bookID, Stage: metrics.StageIllustrate, ItemKey: name, Provider: provider}, start, err)
		rle, limited := providers.IsRateLimitError(err)
		if !limited || attempt == maxThrottleRetries {
			return img, err
		}
		p.logger.Debug("illustration throttled, retrying", "book_id", bookID, "item", name, "retry_after", rle.RetryAfter)
		if rle.RetryAfter > 0 {
			t := time.NewTimer(rle.RetryAfter)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
}
