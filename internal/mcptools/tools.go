// Package mcptools exposes the prompt and concept generation calls as
// Model Context Protocol tools, so an MCP client such as a desktop
// assistant can drive them directly.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/archiflow/internal/gemini"
	"github.com/fpang/archiflow/internal/media"
	"github.com/fpang/archiflow/internal/project"
)

// Tool names.
const (
	ToolRefinePrompt  = "refine_prompt"
	ToolEnhancePrompt = "enhance_prompt"
	ToolConceptImage  = "generate_concept_image"
)

// Generator is the subset of the generation client the tools call.
type Generator interface {
	RefinePrompt(ctx context.Context, description string, files []gemini.InlineFile) (*gemini.RefineResult, error)
	EnhancePrompt(ctx context.Context, currentPrompt, instruction string) (string, error)
	GenerateConceptImage(ctx context.Context, prompt string, reference *gemini.InlineFile, aspectRatio string) (string, error)
}

// RefineInput is the refine_prompt argument object.
type RefineInput struct {
	Description  string   `json:"description" jsonschema:"rough description of the architectural project"`
	ContextPaths []string `json:"contextPaths,omitempty" jsonschema:"local files (images, PDFs, text) that ground the prompt"`
}

// RefineOutput is the refine_prompt result.
type RefineOutput struct {
	RefinedPrompt string `json:"refinedPrompt"`
	Thoughts      string `json:"thoughts"`
}

// EnhanceInput is the enhance_prompt argument object.
type EnhanceInput struct {
	CurrentPrompt string `json:"currentPrompt" jsonschema:"the prompt to rewrite"`
	Instruction   string `json:"instruction" jsonschema:"how to change the prompt"`
}

// EnhanceOutput is the enhance_prompt result.
type EnhanceOutput struct {
	Prompt string `json:"prompt"`
}

// ConceptInput is the generate_concept_image argument object.
type ConceptInput struct {
	Prompt        string `json:"prompt" jsonschema:"image generation prompt"`
	AspectRatio   string `json:"aspectRatio,omitempty" jsonschema:"one of 1:1, 4:3, 16:9, 3:4, 9:16, 21:9"`
	ReferencePath string `json:"referencePath,omitempty" jsonschema:"local image to edit instead of generating from scratch"`
}

// ConceptOutput describes the returned image. The bytes travel as image content.
type ConceptOutput struct {
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
}

type tools struct {
	gen Generator
}

// NewServer builds an MCP server with every archiflow tool registered.
func NewServer(gen Generator, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "archiflow", Version: version}, nil)
	t := &tools{gen: gen}

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolRefinePrompt,
		Description: "Turn a rough architectural description, optionally grounded by local files, into a detailed image-generation prompt.",
	}, t.refinePrompt)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolEnhancePrompt,
		Description: "Rewrite an image-generation prompt according to an instruction.",
	}, t.enhancePrompt)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolConceptImage,
		Description: "Render a concept image from a prompt, optionally editing a local reference image.",
	}, t.conceptImage)
	return server
}

func (t *tools) refinePrompt(ctx context.Context, _ *mcp.CallToolRequest, in RefineInput) (*mcp.CallToolResult, RefineOutput, error) {
	if in.Description == "" && len(in.ContextPaths) == 0 {
		return nil, RefineOutput{}, errors.New("description or contextPaths is required")
	}

	files := make([]gemini.InlineFile, 0, len(in.ContextPaths))
	for _, p := range in.ContextPaths {
		f, err := readInlineFile(p)
		if err != nil {
			return nil, RefineOutput{}, err
		}
		files = append(files, f)
	}

	res, err := t.gen.RefinePrompt(ctx, in.Description, files)
	if err != nil {
		return nil, RefineOutput{}, fmt.Errorf("refine failed: %w", err)
	}
	return nil, RefineOutput{RefinedPrompt: res.RefinedPrompt, Thoughts: res.Thoughts}, nil
}

func (t *tools) enhancePrompt(ctx context.Context, _ *mcp.CallToolRequest, in EnhanceInput) (*mcp.CallToolResult, EnhanceOutput, error) {
	if in.CurrentPrompt == "" || in.Instruction == "" {
		return nil, EnhanceOutput{}, errors.New("currentPrompt and instruction are required")
	}
	prompt, err := t.gen.EnhancePrompt(ctx, in.CurrentPrompt, in.Instruction)
	if err != nil {
		return nil, EnhanceOutput{}, fmt.Errorf("enhance failed: %w", err)
	}
	return nil, EnhanceOutput{Prompt: prompt}, nil
}

func (t *tools) conceptImage(ctx context.Context, _ *mcp.CallToolRequest, in ConceptInput) (*mcp.CallToolResult, ConceptOutput, error) {
	if in.Prompt == "" {
		return nil, ConceptOutput{}, errors.New("prompt is required")
	}
	aspect := project.DefaultAspectRatio
	if in.AspectRatio != "" {
		var err error
		if aspect, err = project.ParseAspectRatio(in.AspectRatio); err != nil {
			return nil, ConceptOutput{}, err
		}
	}

	var ref *gemini.InlineFile
	if in.ReferencePath != "" {
		f, err := readInlineFile(in.ReferencePath)
		if err != nil {
			return nil, ConceptOutput{}, err
		}
		ref = &f
	}

	dataURL, err := t.gen.GenerateConceptImage(ctx, in.Prompt, ref, string(aspect))
	if err != nil {
		return nil, ConceptOutput{}, fmt.Errorf("concept generation failed: %w", err)
	}
	mimeType, data, err := media.DecodeDataURL(dataURL)
	if err != nil {
		return nil, ConceptOutput{}, fmt.Errorf("concept image is unreadable: %w", err)
	}

	log.Info().Str("mime_type", mimeType).Int("bytes", len(data)).Msg("Returning concept image to MCP client")
	result := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.ImageContent{Data: data, MIMEType: mimeType}},
	}
	return result, ConceptOutput{MIMEType: mimeType, Size: len(data)}, nil
}

func readInlineFile(path string) (gemini.InlineFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gemini.InlineFile{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	f := gemini.InlineFile{
		Name:     filepath.Base(path),
		MIMEType: media.DetectMIME("", data),
		Data:     data,
	}
	if media.Classify(f.MIMEType) == media.KindImage {
		if meta, err := media.ExtractImageMetadata(data); err == nil && !meta.IsEmpty() {
			f.Metadata = meta.Summary()
		}
	}
	return f, nil
}
