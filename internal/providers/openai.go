package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jackzampolin/doodlebook/internal/story"
)

const (
	OpenAIName = "openai"

	openAIDefaultChatModel  = "gpt-4.1"
	openAIDefaultImageModel = "gpt-image-1"
	openAIDefaultVideoModel = "sora-2"

	// 4:3 is not offered; this is the closest landscape size.
	openAIImageSize = "1536x1024"
	openAIVideoSize = "1280x720"
	openAIVideoSecs = "8"

	StatusWaking   = "Waking up the magic... ✨"
	StatusPainting = "Painting the world... 🎨"
)

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey       string
	Model        string        // chat model used for analysis
	ImageModel   string        // image model used for illustrations
	VideoModel   string        // video model used for the movie
	RateLimit    float64       // requests per second
	MaxRetries   int           // retry attempts for SDK transport
	PollInterval time.Duration // video job poll interval
	MaxPolls     uint          // video job poll attempts before giving up
	Timeout      time.Duration // HTTP timeout
	BaseURL      string        // optional (tests)
	HTTPClient   *http.Client  // optional (tests)
	Logger       *slog.Logger
}

// OpenAIClient implements StoryAnalyzer, Illustrator and Animator using the
// official OpenAI SDK.
type OpenAIClient struct {
	apiKey       string
	model        string
	imageModel   string
	videoModel   string
	rateLimit    float64
	pollInterval time.Duration
	maxPolls     uint
	limiter      *RateLimiter
	logger       *slog.Logger
	client       openai.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultChatModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openAIDefaultImageModel
	}
	if cfg.VideoModel == "" {
		cfg.VideoModel = openAIDefaultVideoModel
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRequestsPerSecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 8 * time.Second
	}
	if cfg.MaxPolls == 0 {
		cfg.MaxPolls = 150
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		imageModel:   cfg.ImageModel,
		videoModel:   cfg.VideoModel,
		rateLimit:    cfg.RateLimit,
		pollInterval: cfg.PollInterval,
		maxPolls:     cfg.MaxPolls,
		limiter:      NewRateLimiter(cfg.RateLimit),
		logger:       cfg.Logger,
		client:       openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// RateLimiter exposes the client's limiter for status reporting.
func (c *OpenAIClient) RateLimiter() *RateLimiter {
	return c.limiter
}

func (c *OpenAIClient) ready(ctx context.Context) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return ErrAPIKey
	}
	return c.limiter.Wait(ctx)
}

// Analyze sends the drawing to a vision chat model and validates the story
// plan it returns. Output that fails validation is sent back for repair.
func (c *OpenAIClient) Analyze(ctx context.Context, drawing []byte) (*story.Analysis, error) {
	schema, err := analysisContract.Object()
	if err != nil {
		return nil, err
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL(drawing),
			}),
			openai.TextContentPart(analysisPrompt),
		}),
	}

	var lastErr error
	for attempt := 0; attempt <= maxStructuredRepairAttempts; attempt++ {
		if err := c.ready(ctx); err != nil {
			return nil, err
		}

		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    shared.ChatModel(c.model),
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
					JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
						Name:   analysisContract.name,
						Schema: schema,
					},
				},
			},
		})
		if err != nil {
			return nil, c.mapError(err)
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return nil, errors.New("the magic brush ran out of paint, try again")
		}
		content := resp.Choices[0].Message.Content

		a, err := decodeAnalysis(content)
		if err == nil {
			return a, nil
		}
		lastErr = err
		c.logger.Warn("analysis output failed validation", "attempt", attempt+1, "error", err)
		messages = append(messages,
			openai.AssistantMessage(content),
			openai.UserMessage(analysisContract.RepairPrompt(content, err)),
		)
	}
	return nil, fmt.Errorf("analysis failed after %d attempts: %w", maxStructuredRepairAttempts+1, lastErr)
}

// Illustrate edits the drawing into a story page illustration.
func (c *OpenAIClient) Illustrate(ctx context.Context, drawing []byte, character, prompt string) ([]byte, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.Images.Edit(ctx, openai.ImageEditParams{
		Image: openai.ImageEditParamsImageUnion{
			OfFile: openai.File(bytes.NewReader(drawing), story.DrawingName, "image/png"),
		},
		Prompt: illustrationPrompt(character, prompt),
		Model:  openai.ImageModel(c.imageModel),
		Size:   openai.ImageEditParamsSize(openAIImageSize),
	})
	if err != nil {
		return nil, c.mapError(err)
	}
	for _, img := range resp.Data {
		if img.B64JSON == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode illustration: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("could not create magic picture")
}

// videoJob mirrors the fields of the videos API we read.
type videoJob struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type videoRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Seconds string `json:"seconds"`
	Size    string `json:"size"`
}

var errVideoPending = errors.New("video still rendering")

// Animate submits a video job for the analysis, polls until it finishes and
// downloads the movie.
func (c *OpenAIClient) Animate(ctx context.Context, drawing []byte, a *story.Analysis, onStatus func(string)) ([]byte, error) {
	if a == nil {
		return nil, story.ErrNotAnalyzed
	}
	status := func(s string) {
		if onStatus != nil {
			onStatus(s)
		}
	}
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	status(StatusWaking)
	body, err := json.Marshal(videoRequest{
		Model:   c.videoModel,
		Prompt:  animationPrompt(a),
		Seconds: openAIVideoSecs,
		Size:    openAIVideoSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode video request: %w", err)
	}

	var job videoJob
	if err := c.client.Post(ctx, "videos", nil, &job, option.WithRequestBody("application/json", bytes.NewReader(body))); err != nil {
		return nil, c.mapError(err)
	}
	c.logger.Info("video job submitted", "job_id", job.ID, "model", c.videoModel)
	status(StatusPainting)

	err = retry.Do(
		func() error {
			if err := c.client.Get(ctx, "videos/"+job.ID, nil, &job); err != nil {
				return retry.Unrecoverable(c.mapError(err))
			}
			switch job.Status {
			case "completed":
				return nil
			case "failed":
				msg := "video generation failed"
				if job.Error != nil && job.Error.Message != "" {
					msg = job.Error.Message
				}
				return retry.Unrecoverable(errors.New(msg))
			default:
				c.logger.Debug("video job pending", "job_id", job.ID, "status", job.Status, "progress", job.Progress)
				return errVideoPending
			}
		},
		retry.Context(ctx),
		retry.Attempts(c.maxPolls),
		retry.Delay(c.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, errVideoPending) {
			return nil, fmt.Errorf("video job %s did not finish after %d polls", job.ID, c.maxPolls)
		}
		return nil, err
	}

	var resp *http.Response
	if err := c.client.Get(ctx, "videos/"+job.ID+"/content", nil, &resp); err != nil {
		return nil, c.mapError(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading video content: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("the magic portal closed, try again")
	}
	return data, nil
}

// mapError converts SDK errors into the package's error types.
func (c *OpenAIClient) mapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if apiErr.Response != nil {
			retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		c.limiter.Record429(retryAfter)
		return &RateLimitError{
			Message:    fmt.Sprintf("OpenAI rate limited: %s", apiErr.Message),
			RetryAfter: retryAfter,
			StatusCode: apiErr.StatusCode,
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAPIKey, apiErr.Message)
	}
	if apiErr.Message != "" {
		return fmt.Errorf("OpenAI error (status %d): %s", apiErr.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("OpenAI error (status %d)", apiErr.StatusCode)
}

func dataURL(image []byte) string {
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}

var (
	_ StoryAnalyzer = (*OpenAIClient)(nil)
	_ Illustrator   = (*OpenAIClient)(nil)
	_ Animator      = (*OpenAIClient)(nil)
)
