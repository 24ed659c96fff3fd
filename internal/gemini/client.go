// Package gemini is the Generation Client: it owns every request and
// response translation between archiflow and the Gemini API. Request
// payloads are built by pure functions (see request.go) and sent through
// a Backend, so the network boundary can be replaced in tests.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/archiflow/internal/metrics"
)

// Sentinel errors for generation failures.
var (
	// ErrEmptyResponse is returned when the model produced no usable text.
	ErrEmptyResponse = errors.New("received empty response from Gemini API")
	// ErrNoImage is returned when an image call produced no image payload.
	ErrNoImage = errors.New("no image generated")
	// ErrNoVideoOutput is returned when a finished video job has no video.
	ErrNoVideoOutput = errors.New("video generation finished without output")
	// ErrVideoTimeout is returned when a video job outlives the max wait.
	ErrVideoTimeout = errors.New("timed out waiting for video generation")
)

// Defaults for the video job poller.
const (
	DefaultVideoPollInterval = 5 * time.Second
	DefaultVideoMaxWait      = 10 * time.Minute
)

// Backend is the subset of the Gemini API archiflow calls.
type Backend interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	DownloadVideo(ctx context.Context, video *genai.Video) ([]byte, error)
}

// NewGenAIClient creates a Gemini API client for the given key.
func NewGenAIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// NewBackend adapts a genai client to Backend.
func NewBackend(client *genai.Client) Backend {
	return &genaiBackend{client: client}
}

type genaiBackend struct {
	client *genai.Client
}

func (b *genaiBackend) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return b.client.Models.GenerateContent(ctx, model, contents, config)
}

func (b *genaiBackend) GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return b.client.Models.GenerateVideos(ctx, model, prompt, image, config)
}

func (b *genaiBackend) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return b.client.Operations.GetVideosOperation(ctx, op, nil)
}

func (b *genaiBackend) DownloadVideo(ctx context.Context, video *genai.Video) ([]byte, error) {
	return b.client.Files.Download(ctx, genai.NewDownloadURIFromVideo(video), nil)
}

// Options configures a Client.
type Options struct {
	Models            Models
	VideoPollInterval time.Duration
	VideoMaxWait      time.Duration
}

// Client runs the generation operations. It holds no per-call state and
// is safe for concurrent use.
type Client struct {
	backend Backend
	models  Models

	pollInterval time.Duration
	maxWait      time.Duration
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

// New creates a Client over backend.
func New(backend Backend, opts Options) *Client {
	c := &Client{
		backend:      backend,
		models:       opts.Models.withDefaults(),
		pollInterval: opts.VideoPollInterval,
		maxWait:      opts.VideoMaxWait,
		now:          time.Now,
		sleep:        sleepContext,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultVideoPollInterval
	}
	if c.maxWait <= 0 {
		c.maxWait = DefaultVideoMaxWait
	}
	return c
}

// Models returns the model set in use.
func (c *Client) Models() Models {
	return c.models
}

func (c *Client) generate(ctx context.Context, operation string, req ContentRequest) (*genai.GenerateContentResponse, error) {
	log.Debug().
		Str("operation", operation).
		Str("model", req.Model).
		Int("part_count", countParts(req.Contents)).
		Int("inline_bytes", inlineBytes(req.Contents)).
		Msg("Starting Gemini API call")

	start := time.Now()
	resp, err := c.backend.GenerateContent(ctx, req.Model, req.Contents, req.Config)
	duration := time.Since(start)
	recordCall(operation, req.Model, duration, err)

	if err != nil {
		log.Error().Err(err).Str("operation", operation).Dur("duration", duration).Msg("Gemini API call failed")
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}
	log.Debug().Str("operation", operation).Dur("duration", duration).Msg("Gemini API response received")
	return resp, nil
}

// recordCall emits one EMF record per generation call.
func recordCall(operation, model string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.New().
		Dimension("Operation", operation).
		Duration("GenerationLatencyMs", d).
		Count("GenerationCalls").
		Property("Model", model).
		Property("Result", result).
		Flush()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// countParts returns the total number of parts across all content entries.
func countParts(contents []*genai.Content) int {
	n := 0
	for _, c := range contents {
		n += len(c.Parts)
	}
	return n
}

func inlineBytes(contents []*genai.Content) int {
	n := 0
	for _, c := range contents {
		for _, p := range c.Parts {
			if p.InlineData != nil {
				n += len(p.InlineData.Data)
			}
		}
	}
	return n
}
