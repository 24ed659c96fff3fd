package gemini

import (
	"strings"

	"google.golang.org/genai"

	"github.com/fpang/archiflow/internal/assets"
)

// Generation parameters fixed by the application.
const (
	refineThinkingBudget int32   = 32768
	enhanceTemperature   float32 = 0.7

	videoResolution  = "1080p"
	videoAspectRatio = "16:9"
	videoCount       = 1
)

// InlineFile is a file sent inline with a request.
type InlineFile struct {
	MIMEType string
	Data     []byte
	// Metadata is an optional one-line description (EXIF summary) of the
	// file, folded into the refine instruction.
	Metadata string
	Name     string
}

// ContentRequest is a fully built GenerateContent call. Builders return it
// without touching the network so payload shape can be asserted directly.
type ContentRequest struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// VideoRequest is a fully built GenerateVideos call.
type VideoRequest struct {
	Model  string
	Prompt string
	Image  *genai.Image
	Config *genai.GenerateVideosConfig
}

// BuildRefineRequest builds the prompt-refinement call: the instruction
// block first, then every context file inline, in order.
func BuildRefineRequest(model, description string, files []InlineFile) ContentRequest {
	parts := []*genai.Part{{Text: assets.RenderRefinePrompt(assets.RefineData{
		Description:     description,
		MetadataContext: metadataContext(files),
	})}}
	for _, f := range files {
		parts = append(parts, inlinePart(f.MIMEType, f.Data))
	}

	return ContentRequest{
		Model:    model,
		Contents: []*genai.Content{{Role: "user", Parts: parts}},
		Config: &genai.GenerateContentConfig{
			ThinkingConfig: &genai.ThinkingConfig{
				ThinkingBudget:  genai.Ptr(refineThinkingBudget),
				IncludeThoughts: true,
			},
			Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		},
	}
}

// BuildEnhanceRequest builds the prompt-enhancement call used by the
// pipeline and the Prompt Lab.
func BuildEnhanceRequest(model, currentPrompt, instruction string) ContentRequest {
	return ContentRequest{
		Model: model,
		Contents: []*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{Text: assets.EnhanceCurrentPrompt(currentPrompt)},
				{Text: assets.EnhanceInstruction(instruction)},
				{Text: assets.EnhanceTail},
			},
		}},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: assets.EnhanceSystemPrompt}},
			},
			Temperature: genai.Ptr(enhanceTemperature),
		},
	}
}

// BuildConceptRequest builds a concept image call. With a reference image
// the prompt becomes an edit instruction on that image; without one it is
// a fresh generation.
func BuildConceptRequest(model, prompt string, reference *InlineFile, aspectRatio string) ContentRequest {
	var parts []*genai.Part
	if reference != nil {
		parts = append(parts,
			inlinePart(reference.MIMEType, reference.Data),
			&genai.Part{Text: assets.ConceptEditPrefix + prompt},
		)
	} else {
		parts = append(parts, &genai.Part{Text: prompt})
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	if aspectRatio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: aspectRatio}
	}

	return ContentRequest{
		Model:    model,
		Contents: []*genai.Content{{Role: "user", Parts: parts}},
		Config:   cfg,
	}
}

// BuildHighResRequest builds a hyper-realistic render call. A reference
// image, when given, is sent ahead of the prompt like a concept edit.
func BuildHighResRequest(model, prompt string, reference *InlineFile, aspectRatio, imageSize string) ContentRequest {
	var parts []*genai.Part
	if reference != nil {
		parts = append(parts, inlinePart(reference.MIMEType, reference.Data))
	}
	parts = append(parts, &genai.Part{Text: assets.HighResRenderPrefix + prompt})

	return ContentRequest{
		Model:    model,
		Contents: []*genai.Content{{Role: "user", Parts: parts}},
		Config: &genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			ImageConfig: &genai.ImageConfig{
				AspectRatio: aspectRatio,
				ImageSize:   imageSize,
			},
		},
	}
}

// BuildVideoRequest builds a video job seeded from one image.
func BuildVideoRequest(model string, seed InlineFile, prompt string) VideoRequest {
	return VideoRequest{
		Model:  model,
		Prompt: assets.VideoPrefix + prompt,
		Image: &genai.Image{
			ImageBytes: seed.Data,
			MIMEType:   seed.MIMEType,
		},
		Config: &genai.GenerateVideosConfig{
			NumberOfVideos: videoCount,
			Resolution:     videoResolution,
			AspectRatio:    videoAspectRatio,
		},
	}
}

func inlinePart(mimeType string, data []byte) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}
}

// metadataContext lists the files that carry metadata, one per line.
func metadataContext(files []InlineFile) string {
	var lines []string
	for _, f := range files {
		if f.Metadata == "" {
			continue
		}
		name := f.Name
		if name == "" {
			name = "file"
		}
		lines = append(lines, "- "+name+": "+f.Metadata)
	}
	return strings.Join(lines, "\n")
}
