package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/fpang/archiflow/internal/assets"
	"github.com/fpang/archiflow/internal/media"
)

// fakeBackend records calls and replays canned responses.
type fakeBackend struct {
	resp *genai.GenerateContentResponse
	err  error

	calls []ContentRequest

	startOp    *genai.GenerateVideosOperation
	pollOps    []*genai.GenerateVideosOperation
	polls      int
	download   []byte
	downloaded int
}

func (f *fakeBackend) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, ContentRequest{Model: model, Contents: contents, Config: config})
	return f.resp, f.err
}

func (f *fakeBackend) GenerateVideos(_ context.Context, _, _ string, _ *genai.Image, _ *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return f.startOp, f.err
}

func (f *fakeBackend) GetVideosOperation(_ context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	f.polls++
	if len(f.pollOps) == 0 {
		return op, nil
	}
	next := f.pollOps[0]
	f.pollOps = f.pollOps[1:]
	return next, nil
}

func (f *fakeBackend) DownloadVideo(_ context.Context, _ *genai.Video) ([]byte, error) {
	f.downloaded++
	return f.download, nil
}

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func TestRefinePromptReturnsTextAndPlaceholder(t *testing.T) {
	fb := &fakeBackend{resp: textResponse(&genai.Part{Text: "A minimalist glass pavilion..."})}
	c := New(fb, Options{})

	got, err := c.RefinePrompt(context.Background(), "glass pavilion", nil)
	if err != nil {
		t.Fatalf("RefinePrompt() error = %v", err)
	}
	if got.RefinedPrompt != "A minimalist glass pavilion..." {
		t.Errorf("RefinedPrompt = %q", got.RefinedPrompt)
	}
	if got.Thoughts != ThoughtsPlaceholder {
		t.Errorf("Thoughts = %q, want placeholder", got.Thoughts)
	}
	if len(fb.calls) != 1 || fb.calls[0].Model != ModelGemini3ProPreview {
		t.Errorf("calls = %+v", fb.calls)
	}
}

func TestRefinePromptSurfacesThoughts(t *testing.T) {
	fb := &fakeBackend{resp: textResponse(
		&genai.Part{Text: "Considering the site.", Thought: true},
		&genai.Part{Text: "Final prompt"},
	)}
	c := New(fb, Options{})

	got, err := c.RefinePrompt(context.Background(), "x", nil)
	if err != nil {
		t.Fatalf("RefinePrompt() error = %v", err)
	}
	if got.RefinedPrompt != "Final prompt" {
		t.Errorf("RefinedPrompt = %q", got.RefinedPrompt)
	}
	if got.Thoughts != "Considering the site." {
		t.Errorf("Thoughts = %q", got.Thoughts)
	}
}

func TestRefinePromptEmptyIsError(t *testing.T) {
	c := New(&fakeBackend{resp: textResponse()}, Options{})

	_, err := c.RefinePrompt(context.Background(), "x", nil)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("error = %v, want ErrEmptyResponse", err)
	}
}

func TestEnhancePromptEmptyReturnsCurrent(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"no candidates", &genai.GenerateContentResponse{}},
		{"empty parts", textResponse()},
		{"only thoughts", textResponse(&genai.Part{Text: "hmm", Thought: true})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&fakeBackend{resp: tt.resp}, Options{})
			got, err := c.EnhancePrompt(context.Background(), "keep me", "add trees")
			if err != nil {
				t.Fatalf("EnhancePrompt() error = %v", err)
			}
			if got != "keep me" {
				t.Errorf("EnhancePrompt() = %q, want current prompt", got)
			}
		})
	}
}

func TestEnhancePromptBackendError(t *testing.T) {
	boom := errors.New("boom")
	c := New(&fakeBackend{err: boom}, Options{})

	if _, err := c.EnhancePrompt(context.Background(), "p", "i"); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped boom", err)
	}
}

func TestGenerateConceptImage(t *testing.T) {
	fb := &fakeBackend{resp: textResponse(
		&genai.Part{Text: "Here is your concept"},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}}},
	)}
	c := New(fb, Options{})

	got, err := c.GenerateConceptImage(context.Background(), "X", nil, "16:9")
	if err != nil {
		t.Fatalf("GenerateConceptImage() error = %v", err)
	}
	if want := media.EncodeDataURL("image/jpeg", []byte{0xff, 0xd8}); got != want {
		t.Errorf("data URL = %q, want %q", got, want)
	}
}

func TestGenerateConceptImageNoImage(t *testing.T) {
	c := New(&fakeBackend{resp: textResponse(&genai.Part{Text: "sorry"})}, Options{})

	if _, err := c.GenerateConceptImage(context.Background(), "X", nil, ""); !errors.Is(err, ErrNoImage) {
		t.Fatalf("error = %v, want ErrNoImage", err)
	}
}

func TestGenerateHighResRenderDefaultsMIME(t *testing.T) {
	fb := &fakeBackend{resp: textResponse(&genai.Part{InlineData: &genai.Blob{Data: []byte{1}}})}
	c := New(fb, Options{})

	got, err := c.GenerateHighResRender(context.Background(), "X", nil, "1:1", "2K")
	if err != nil {
		t.Fatalf("GenerateHighResRender() error = %v", err)
	}
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("data URL = %q", got)
	}
	if fb.calls[0].Model != ModelGemini3ProImage {
		t.Errorf("model = %q", fb.calls[0].Model)
	}
}

func TestModelsWithDefaults(t *testing.T) {
	c := New(&fakeBackend{}, Options{Models: Models{Reasoning: "custom"}})
	m := c.Models()
	if m.Reasoning != "custom" || m.ConceptImage != ModelGemini25FlashImage || m.Video != ModelVeo31Fast {
		t.Errorf("Models() = %+v", m)
	}
}

func TestBuildEnhanceRequest(t *testing.T) {
	req := BuildEnhanceRequest("m", "a house", "remove RED marked shapes")

	if req.Config.SystemInstruction == nil || req.Config.SystemInstruction.Parts[0].Text != assets.EnhanceSystemPrompt {
		t.Error("system instruction should be the enhancement persona")
	}
	if req.Config.Temperature == nil || *req.Config.Temperature != 0.7 {
		t.Errorf("temperature = %v", req.Config.Temperature)
	}
	parts := req.Contents[0].Parts
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}
	if parts[0].Text != `Current Prompt: "a house"` {
		t.Errorf("part 0 = %q", parts[0].Text)
	}
	if parts[1].Text != `User Instruction/Refinement Request: "remove RED marked shapes"` {
		t.Errorf("part 1 = %q", parts[1].Text)
	}
}

func TestBuildRefineRequest(t *testing.T) {
	files := []InlineFile{
		{Name: "site.jpg", MIMEType: "image/jpeg", Data: []byte{1, 2}, Metadata: "camera Canon EOS R5"},
		{Name: "brief.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")},
	}
	req := BuildRefineRequest("m", "glass pavilion", files)

	parts := req.Contents[0].Parts
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want instruction + 2 files", len(parts))
	}
	if !strings.Contains(parts[0].Text, "User Description: glass pavilion") {
		t.Errorf("instruction missing description: %q", parts[0].Text)
	}
	if !strings.Contains(parts[0].Text, "- site.jpg: camera Canon EOS R5") {
		t.Errorf("instruction missing metadata: %q", parts[0].Text)
	}
	if parts[2].InlineData == nil || parts[2].InlineData.MIMEType != "application/pdf" {
		t.Errorf("file order not preserved")
	}
	if req.Config.ThinkingConfig == nil || *req.Config.ThinkingConfig.ThinkingBudget != 32768 {
		t.Error("thinking budget not set")
	}
	if len(req.Config.Tools) != 1 || req.Config.Tools[0].GoogleSearch == nil {
		t.Error("search tool not set")
	}
}

func TestBuildRefineRequestNoMetadataBlock(t *testing.T) {
	req := BuildRefineRequest("m", "d", nil)
	if strings.Contains(req.Contents[0].Parts[0].Text, "Context file metadata") {
		t.Error("metadata block should be omitted without metadata")
	}
}

func TestBuildConceptRequest(t *testing.T) {
	t.Run("fresh generation", func(t *testing.T) {
		req := BuildConceptRequest("m", "X", nil, "")
		parts := req.Contents[0].Parts
		if len(parts) != 1 || parts[0].Text != "X" {
			t.Errorf("parts = %+v", parts)
		}
		if req.Config.ImageConfig != nil {
			t.Error("image config should be unset without aspect ratio")
		}
	})

	t.Run("edit reference", func(t *testing.T) {
		ref := &InlineFile{MIMEType: "image/png", Data: []byte{9}}
		req := BuildConceptRequest("m", "X", ref, "4:3")
		parts := req.Contents[0].Parts
		if len(parts) != 2 || parts[0].InlineData == nil {
			t.Fatalf("parts = %+v", parts)
		}
		if parts[1].Text != "Edit this image based on the following instructions: X" {
			t.Errorf("edit text = %q", parts[1].Text)
		}
		if req.Config.ImageConfig.AspectRatio != "4:3" {
			t.Errorf("aspect ratio = %q", req.Config.ImageConfig.AspectRatio)
		}
	})
}

func TestBuildHighResRequest(t *testing.T) {
	req := BuildHighResRequest("m", "X", nil, "21:9", "4K")
	parts := req.Contents[0].Parts
	if parts[len(parts)-1].Text != "Hyper-realistic architectural render, 8k, detailed textures, dramatic lighting. X" {
		t.Errorf("prompt = %q", parts[len(parts)-1].Text)
	}
	if req.Config.ImageConfig.ImageSize != "4K" || req.Config.ImageConfig.AspectRatio != "21:9" {
		t.Errorf("image config = %+v", req.Config.ImageConfig)
	}
}

func TestBuildVideoRequest(t *testing.T) {
	req := BuildVideoRequest("veo", InlineFile{MIMEType: "image/png", Data: []byte{1}}, "walkthrough")

	if req.Prompt != "Cinematic architectural tour. walkthrough" {
		t.Errorf("prompt = %q", req.Prompt)
	}
	if req.Config.NumberOfVideos != 1 || req.Config.Resolution != "1080p" || req.Config.AspectRatio != "16:9" {
		t.Errorf("config = %+v", req.Config)
	}
	if req.Image.MIMEType != "image/png" {
		t.Errorf("image = %+v", req.Image)
	}
}
