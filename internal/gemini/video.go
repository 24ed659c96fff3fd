package gemini

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/archiflow/internal/media"
)

// Video is a finished video.
type Video struct {
	Data     []byte
	MIMEType string
}

// GenerateVideo submits a video job seeded from one image, polls it until
// done and downloads the result. Polling stops at the configured max wait
// or when ctx ends.
func (c *Client) GenerateVideo(ctx context.Context, seed InlineFile, prompt string) (*Video, error) {
	req := BuildVideoRequest(c.models.Video, seed, prompt)
	log.Info().
		Str("model", req.Model).
		Int("seed_bytes", len(seed.Data)).
		Msg("Submitting video generation job")

	start := c.now()
	video, err := c.runVideoJob(ctx, req)
	recordCall("video", req.Model, c.now().Sub(start), err)
	if err != nil {
		log.Error().Err(err).Dur("duration", c.now().Sub(start)).Msg("Video generation failed")
		return nil, err
	}

	log.Info().
		Int("video_bytes", len(video.Data)).
		Dur("duration", c.now().Sub(start)).
		Msg("Video generation complete")
	return video, nil
}

func (c *Client) runVideoJob(ctx context.Context, req VideoRequest) (*Video, error) {
	op, err := c.backend.GenerateVideos(ctx, req.Model, req.Prompt, req.Image, req.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to start video generation: %w", err)
	}

	op, err = c.waitForVideo(ctx, op)
	if err != nil {
		return nil, err
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 ||
		op.Response.GeneratedVideos[0] == nil || op.Response.GeneratedVideos[0].Video == nil {
		return nil, ErrNoVideoOutput
	}
	v := op.Response.GeneratedVideos[0].Video

	mimeType := v.MIMEType
	if mimeType == "" {
		mimeType = media.MIMEMP4
	}
	if len(v.VideoBytes) > 0 {
		return &Video{Data: v.VideoBytes, MIMEType: mimeType}, nil
	}
	if v.URI == "" {
		return nil, ErrNoVideoOutput
	}

	data, err := c.backend.DownloadVideo(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	return &Video{Data: data, MIMEType: mimeType}, nil
}

// waitForVideo polls op every poll interval until it reports done.
func (c *Client) waitForVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	deadline := c.now().Add(c.maxWait)
	polls := 0
	for op != nil && !op.Done {
		if !c.now().Before(deadline) {
			return nil, fmt.Errorf("%w after %v (%d polls)", ErrVideoTimeout, c.maxWait, polls)
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, fmt.Errorf("video generation interrupted: %w", err)
		}

		next, err := c.backend.GetVideosOperation(ctx, op)
		if err != nil {
			return nil, fmt.Errorf("failed to poll video operation: %w", err)
		}
		op = next
		polls++
		log.Debug().Int("poll", polls).Msg("Polled video operation")
	}

	if op == nil {
		return nil, ErrNoVideoOutput
	}
	if op.Error != nil {
		return nil, fmt.Errorf("video generation failed: %v", op.Error)
	}
	return op, nil
}
