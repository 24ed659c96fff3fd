package gemini

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/archiflow/internal/media"
)

// ThoughtsPlaceholder is reported when the model returned no thought
// summary alongside a refined prompt.
const ThoughtsPlaceholder = "Thinking process complete."

// RefineResult is the outcome of a prompt refinement.
type RefineResult struct {
	RefinedPrompt string
	// Thoughts is best-effort, informational reasoning trace.
	Thoughts string
}

// RefinePrompt turns a rough description plus context files into a
// detailed image-generation prompt.
func (c *Client) RefinePrompt(ctx context.Context, description string, files []InlineFile) (*RefineResult, error) {
	log.Info().
		Int("context_files", len(files)).
		Int("description_length", len(description)).
		Msg("Refining architectural prompt")

	resp, err := c.generate(ctx, "refine", BuildRefineRequest(c.models.Reasoning, description, files))
	if err != nil {
		return nil, err
	}

	text, thoughts := splitText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}
	if thoughts == "" {
		thoughts = ThoughtsPlaceholder
	}
	return &RefineResult{RefinedPrompt: text, Thoughts: thoughts}, nil
}

// EnhancePrompt rewrites currentPrompt according to instruction. An empty
// model response yields currentPrompt unchanged.
func (c *Client) EnhancePrompt(ctx context.Context, currentPrompt, instruction string) (string, error) {
	resp, err := c.generate(ctx, "enhance", BuildEnhanceRequest(c.models.Reasoning, currentPrompt, instruction))
	if err != nil {
		return "", err
	}

	text, _ := splitText(resp)
	if text == "" {
		log.Warn().Msg("Enhancement returned empty text, keeping current prompt")
		return currentPrompt, nil
	}
	return text, nil
}

// GenerateConceptImage produces a concept image as a data URL. With a
// reference image the prompt edits that image.
func (c *Client) GenerateConceptImage(ctx context.Context, prompt string, reference *InlineFile, aspectRatio string) (string, error) {
	log.Info().
		Bool("has_reference", reference != nil).
		Str("aspect_ratio", aspectRatio).
		Msg("Generating concept image")

	resp, err := c.generate(ctx, "concept", BuildConceptRequest(c.models.ConceptImage, prompt, reference, aspectRatio))
	if err != nil {
		return "", err
	}
	return imageDataURL(resp)
}

// GenerateHighResRender produces a hyper-realistic render as a data URL.
func (c *Client) GenerateHighResRender(ctx context.Context, prompt string, reference *InlineFile, aspectRatio, imageSize string) (string, error) {
	log.Info().
		Bool("has_reference", reference != nil).
		Str("aspect_ratio", aspectRatio).
		Str("image_size", imageSize).
		Msg("Generating hyper-realistic render")

	resp, err := c.generate(ctx, "render", BuildHighResRequest(c.models.HighResImage, prompt, reference, aspectRatio, imageSize))
	if err != nil {
		return "", err
	}
	return imageDataURL(resp)
}

// splitText separates the answer text from thought-summary text in the
// first candidate.
func splitText(resp *genai.GenerateContentResponse) (text, thoughts string) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ""
	}
	var answer, thought strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		if part.Thought {
			thought.WriteString(part.Text)
		} else {
			answer.WriteString(part.Text)
		}
	}
	return answer.String(), strings.TrimSpace(thought.String())
}

// imageDataURL returns the first inline image of the first candidate.
func imageDataURL(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoImage
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := part.InlineData.MIMEType
		if !strings.HasPrefix(mimeType, "image/") {
			mimeType = media.MIMEPNG
		}
		return media.EncodeDataURL(mimeType, part.InlineData.Data), nil
	}
	return "", ErrNoImage
}
