package webapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpang/archiflow/internal/blob"
	"github.com/fpang/archiflow/internal/gemini"
	"github.com/fpang/archiflow/internal/media"
	"github.com/fpang/archiflow/internal/store"
	"github.com/fpang/archiflow/internal/workspace"
)

// fakeGenerator answers every generation call from its fields.
type fakeGenerator struct {
	mu    sync.Mutex
	calls map[string]int

	refined    string
	refineErr  error
	enhanced   string
	enhanceErr error
	imageURL   string
	imageErr   error
	video      *gemini.Video
	videoErr   error
}

func (g *fakeGenerator) record(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = map[string]int{}
	}
	g.calls[op]++
}

func (g *fakeGenerator) count(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *fakeGenerator) RefinePrompt(context.Context, string, []gemini.InlineFile) (*gemini.RefineResult, error) {
	g.record("refine")
	if g.refineErr != nil {
		return nil, g.refineErr
	}
	return &gemini.RefineResult{RefinedPrompt: g.refined, Thoughts: gemini.ThoughtsPlaceholder}, nil
}

func (g *fakeGenerator) EnhancePrompt(_ context.Context, current, _ string) (string, error) {
	g.record("enhance")
	if g.enhanceErr != nil {
		return "", g.enhanceErr
	}
	if g.enhanced == "" {
		return current, nil
	}
	return g.enhanced, nil
}

func (g *fakeGenerator) GenerateConceptImage(context.Context, string, *gemini.InlineFile, string) (string, error) {
	g.record("concept")
	return g.imageURL, g.imageErr
}

func (g *fakeGenerator) GenerateHighResRender(context.Context, string, *gemini.InlineFile, string, string) (string, error) {
	g.record("render")
	return g.imageURL, g.imageErr
}

func (g *fakeGenerator) GenerateVideo(context.Context, gemini.InlineFile, string) (*gemini.Video, error) {
	g.record("video")
	return g.video, g.videoErr
}

// stateView is the subset of the project JSON the tests inspect.
type stateView struct {
	Description  string `json:"description"`
	ContextFiles []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Type       string `json:"type"`
		PreviewURL string `json:"previewUrl"`
	} `json:"contextFiles"`
	ExactReferences []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"exactReferences"`
	GeneratedPrompt string `json:"generatedPrompt"`
	Outputs         []struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		ImageURL string `json:"imageUrl"`
		VideoURL string `json:"videoUrl"`
		Prompt   string `json:"prompt"`
	} `json:"outputs"`
	VideoJobs []struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	} `json:"videoJobs"`
	IsThinking          bool   `json:"isThinking"`
	ActiveStage         int    `json:"activeStage"`
	SelectedAspectRatio string `json:"selectedAspectRatio"`
	SelectedResolution  string `json:"selectedResolution"`
}

type testServer struct {
	t       *testing.T
	gen     *fakeGenerator
	handler http.Handler
	session string
}

func newTestServer(t *testing.T, gen *fakeGenerator, opts Options) *testServer {
	t.Helper()
	blobs, err := blob.NewMemoryStore(8)
	require.NoError(t, err)
	reg := workspace.NewRegistry(workspace.Options{
		Generator:   gen,
		Blobs:       blobs,
		Prompts:     store.NewMemoryStore(),
		MaxSessions: 8,
		TTL:         time.Hour,
	})
	srv, err := New(reg, blobs, opts)
	require.NoError(t, err)

	ts := &testServer{t: t, gen: gen, handler: srv.Handler()}
	rec := ts.do(http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	ts.session = created["sessionId"]
	require.NotEmpty(t, ts.session)
	return ts
}

func (ts *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(ts.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if ts.session != "" {
		req.Header.Set(sessionHeader, ts.session)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) state(rec *httptest.ResponseRecorder) stateView {
	ts.t.Helper()
	var st stateView
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &st), rec.Body.String())
	return st
}

func (ts *testServer) errorText(rec *httptest.ResponseRecorder) string {
	ts.t.Helper()
	var body map[string]interface{}
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func (ts *testServer) errorCode(rec *httptest.ResponseRecorder) string {
	ts.t.Helper()
	var body map[string]interface{}
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{}, Options{})
	rec := ts.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestSessionRequired(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{}, Options{})

	ts.session = ""
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/project", nil).Code)

	ts.session = "00000000-0000-0000-0000-000000000000"
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/project", nil).Code)
}

func TestSessionFromQuery(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{}, Options{})
	id := ts.session
	ts.session = ""

	rec := ts.do(http.MethodGet, "/api/project?sessionId="+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := ts.state(rec)
	assert.Equal(t, 1, st.ActiveStage)
	assert.Equal(t, "16:9", st.SelectedAspectRatio)
	assert.Equal(t, "1K", st.SelectedResolution)
}

func TestGeneratePrompt(t *testing.T) {
	gen := &fakeGenerator{refined: "A minimalist glass pavilion..."}
	ts := newTestServer(t, gen, Options{})

	ts.do(http.MethodPut, "/api/project/description", textRequest{Text: "glass pavilion"})
	ts.do(http.MethodPost, "/api/project/confirm", nil)

	rec := ts.do(http.MethodPost, "/api/project/generate-prompt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := ts.state(rec)
	assert.Equal(t, "A minimalist glass pavilion...", st.GeneratedPrompt)
	assert.Equal(t, 3, st.ActiveStage)
	assert.False(t, st.IsThinking)
}

func TestGeneratePromptFailure(t *testing.T) {
	gen := &fakeGenerator{refineErr: errors.New("upstream 500")}
	ts := newTestServer(t, gen, Options{})

	rec := ts.do(http.MethodPost, "/api/project/generate-prompt", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, alertGeneratePrompt, ts.errorText(rec))
	assert.Equal(t, codeGenerationFailed, ts.errorCode(rec))

	st := ts.state(ts.do(http.MethodGet, "/api/project", nil))
	assert.False(t, st.IsThinking)
	assert.Empty(t, st.GeneratedPrompt)
}

func TestRefineShortCircuits(t *testing.T) {
	gen := &fakeGenerator{}
	ts := newTestServer(t, gen, Options{})

	rec := ts.do(http.MethodPost, "/api/project/refine", refineRequest{})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, gen.count("enhance"))
}

func TestRefineFailureKeepsPrompt(t *testing.T) {
	gen := &fakeGenerator{enhanceErr: errors.New("boom")}
	ts := newTestServer(t, gen, Options{})
	ts.do(http.MethodPut, "/api/project/prompt", textRequest{Text: "X"})

	rec := ts.do(http.MethodPost, "/api/project/refine", refineRequest{Instruction: "make it brutalist"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, alertRefinePrompt, ts.errorText(rec))

	st := ts.state(ts.do(http.MethodGet, "/api/project", nil))
	assert.Equal(t, "X", st.GeneratedPrompt)
}

func TestConceptsShortCircuitOnEmptyPrompt(t *testing.T) {
	gen := &fakeGenerator{}
	ts := newTestServer(t, gen, Options{})

	rec := ts.do(http.MethodPost, "/api/project/concepts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.state(rec).Outputs)
	assert.Zero(t, gen.count("concept"))
}

func TestConceptAndDownload(t *testing.T) {
	gen := &fakeGenerator{imageURL: media.EncodeDataURL("image/png", pngBytes(t))}
	ts := newTestServer(t, gen, Options{})
	ts.do(http.MethodPut, "/api/project/prompt", textRequest{Text: "X"})

	rec := ts.do(http.MethodPost, "/api/project/concepts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := ts.state(rec)
	require.Len(t, st.Outputs, 1)
	out := st.Outputs[0]
	assert.Equal(t, "concept", out.Type)
	assert.Equal(t, "X", out.Prompt)
	assert.Equal(t, 4, st.ActiveStage)

	dl := ts.do(http.MethodGet, "/api/outputs/"+out.ID+"/download", nil)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "image/png", dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "archiflow-output-"+out.ID+".png")
	assert.Equal(t, pngBytes(t), dl.Body.Bytes())

	missing := ts.do(http.MethodGet, "/api/outputs/missing/download", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, codeNotFound, ts.errorCode(missing))

	rec = ts.do(http.MethodDelete, "/api/outputs/"+out.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.state(rec).Outputs)
}

func TestSnapshotLinksImages(t *testing.T) {
	gen := &fakeGenerator{imageURL: media.EncodeDataURL("image/png", pngBytes(t))}
	ts := newTestServer(t, gen, Options{})
	ts.do(http.MethodPut, "/api/project/prompt", textRequest{Text: "X"})
	ts.do(http.MethodPost, "/api/project/concepts", nil)

	st := ts.state(ts.do(http.MethodGet, "/api/project", nil))
	require.Len(t, st.Outputs, 1)
	out := st.Outputs[0]
	assert.Equal(t, "/api/outputs/"+out.ID+"/image?sessionId="+ts.session, out.ImageURL)

	// The link carries the session, so no header is needed.
	id := ts.session
	ts.session = ""
	img := ts.do(http.MethodGet, out.ImageURL, nil)
	ts.session = id
	require.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image/png", img.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes(t), img.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/outputs/missing/image", nil).Code)

	st = ts.state(ts.upload("context", "site.png", "image/png", pngBytes(t)))
	require.Len(t, st.ContextFiles, 1)
	f := st.ContextFiles[0]
	assert.Equal(t, "/api/project/files/"+f.ID+"/preview?sessionId="+ts.session, f.PreviewURL)

	preview := ts.do(http.MethodGet, f.PreviewURL, nil)
	require.Equal(t, http.StatusOK, preview.Code)
	assert.Equal(t, pngBytes(t), preview.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/project/files/nope/preview", nil).Code)
	assert.NotContains(t, ts.do(http.MethodGet, "/api/project", nil).Body.String(), "data:")
}

func TestConceptFailure(t *testing.T) {
	gen := &fakeGenerator{imageErr: gemini.ErrNoImage}
	ts := newTestServer(t, gen, Options{})
	ts.do(http.MethodPut, "/api/project/prompt", textRequest{Text: "X"})

	rec := ts.do(http.MethodPost, "/api/project/concepts", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, alertConcept, ts.errorText(rec))
}

func TestRenderHighRes(t *testing.T) {
	gen := &fakeGenerator{imageURL: media.EncodeDataURL("image/png", pngBytes(t))}
	ts := newTestServer(t, gen, Options{})
	ts.do(http.MethodPut, "/api/project/prompt", textRequest{Text: "X"})

	rec := ts.do(http.MethodPost, "/api/project/render", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := ts.state(rec)
	require.Len(t, st.Outputs, 1)
	assert.Equal(t, "hyper-realistic", st.Outputs[0].Type)
}

func TestChangeSettings(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{}, Options{})

	rec := ts.do(http.MethodPut, "/api/project/settings", settingsRequest{AspectRatio: "9:16", Resolution: "4K"})
	require.Equal(t, http.StatusOK, rec.Code)
	st := ts.state(rec)
	assert.Equal(t, "9:16", st.SelectedAspectRatio)
	assert.Equal(t, "4K", st.SelectedResolution)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPut, "/api/project/settings", settingsRequest{AspectRatio: "5:4"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPut, "/api/project/settings", settingsRequest{Resolution: "8K"}).Code)

	req := httptest.NewRequest(http.MethodPut, "/api/project/settings", strings.NewReader("{"))
	req.Header.Set(sessionHeader, ts.session)
	bad := httptest.NewRecorder()
	ts.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, codeInvalidRequest, ts.errorCode(bad))
}

func (ts *testServer) upload(collection string, name, contentType string, data []byte) *httptest.ResponseRecorder {
	ts.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(ts.t, err)
	_, err = part.Write(data)
	require.NoError(ts.t, err)
	require.NoError(ts.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/project/files?collection="+collection, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(sessionHeader, ts.session)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestUploadAndRemoveFiles(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{}, Options{})

	rec := ts.upload("context", "site.jpg", "image/png", pngBytes(t))
	require.Equal(t, http.StatusOK, rec.Code)
	st := ts.state(rec)
	require.Len(t, st.ContextFiles, 1)
	assert.Equal(t, "site.jpg", st.ContextFiles[0].Name)
	assert.Equal(t, "image", st.ContextFiles[0].Type)

	assert.Equal(t, http.StatusBadRequest, ts.upload("elsewhere", "a.txt", "text/plain", []byte("hi")).Code)

	id := st.ContextFiles[0].ID
	rec = ts.do(http.MethodDelete, "/api/project/files/"+id+"?collection=context", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.state(rec).ContextFiles)

	// Removing again is a no-op.
	rec = ts.do(http.MethodDelete, "/api/project/files/"+id+"?collection=context", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReuseOutput(t *testing.T) {
	gen := &fakeGenerator{imageURL: media.EncodeDataURL("image/png", pngBytes(t))}
	ts := newTestServer(t, gen, Options{})
	ts.do(http.MethodPut, "/api/project/prompt", textRequest{Text: "X"})
	out := ts.state(ts.do(http.MethodPost, "/api/project/concepts", nil)).Outputs[0]

	rec := ts.do(http.MethodPost, "/api/project/reuse", reuseRequest{OutputID: out.ID, Collection: "reference"})
	require.Equal(t, http.StatusOK, rec.Code)
	st := ts.state(rec)
	require.Len(t, st.ExactReferences, 1)
	assert.NotEqual(t, out.ID, st.ExactReferences[0].ID)
	assert.Len(t, st.Outputs, 1)

	rec = ts.do(http.MethodPut, "/api/project/selection", selectionRequest{ReferenceID: st.ExactReferences[0].ID})
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, "/api/project/reuse", reuseRequest{OutputID: "nope", Collection: "reference"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/project/reuse", reuseRequest{OutputID: out.ID, Collection: "bogus"}).Code)
}

func TestRenderVideo(t *testing.T) {
	gen := &fakeGenerator{
		imageURL: media.EncodeDataURL("image/png", pngBytes(t)),
		video:    &gemini.Video{Data: []byte("mp4-bytes"), MIMEType: "video/mp4"},
	}
	ts := newTestServer(t, gen, Options{})
	ts.do(http.MethodPut, "/api/project/prompt", textRequest{Text: "X"})
	src := ts.state(ts.do(http.MethodPost, "/api/project/concepts", nil)).Outputs[0]

	rec := ts.do(http.MethodPost, "/api/outputs/"+src.ID+"/video", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var st stateView
	require.Eventually(t, func() bool {
		st = ts.state(ts.do(http.MethodGet, "/api/project", nil))
		return len(st.Outputs) == 2 && len(st.VideoJobs) == 0
	}, 2*time.Second, 10*time.Millisecond)

	video := st.Outputs[1]
	assert.Equal(t, "video", video.Type)
	assert.Empty(t, video.ImageURL)
	require.True(t, strings.HasPrefix(video.VideoURL, blob.URLPrefix))

	b := ts.do(http.MethodGet, video.VideoURL, nil)
	require.Equal(t, http.StatusOK, b.Code)
	assert.Equal(t, "video/mp4", b.Header().Get("Content-Type"))
	assert.Equal(t, "mp4-bytes", b.Body.String())

	dl := ts.do(http.MethodGet, "/api/outputs/"+video.ID+"/download", nil)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Contains(t, dl.Header().Get("Content-Disposition"), ".mp4")

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/outputs/"+video.ID+"/video", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, "/api/outputs/nope/video", nil).Code)

	// Removing the output deletes its video.
	require.Equal(t, http.StatusOK, ts.do(http.MethodDelete, "/api/outputs/"+video.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, video.VideoURL, nil).Code)
}

func TestRenderVideoFailureIsDismissable(t *testing.T) {
	gen := &fakeGenerator{
		imageURL: media.EncodeDataURL("image/png", pngBytes(t)),
		videoErr: gemini.ErrVideoTimeout,
	}
	ts := newTestServer(t, gen, Options{})
	ts.do(http.MethodPut, "/api/project/prompt", textRequest{Text: "X"})
	src := ts.state(ts.do(http.MethodPost, "/api/project/concepts", nil)).Outputs[0]

	require.Equal(t, http.StatusAccepted, ts.do(http.MethodPost, "/api/outputs/"+src.ID+"/video", nil).Code)

	var st stateView
	require.Eventually(t, func() bool {
		st = ts.state(ts.do(http.MethodGet, "/api/project", nil))
		return len(st.VideoJobs) == 1 && st.VideoJobs[0].Error != ""
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, st.Outputs, 1)

	rec := ts.do(http.MethodDelete, "/api/project/video-jobs/"+st.VideoJobs[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.state(rec).VideoJobs)
}

func TestBundle(t *testing.T) {
	gen := &fakeGenerator{imageURL: media.EncodeDataURL("image/png", pngBytes(t))}
	ts := newTestServer(t, gen, Options{})

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/outputs/bundle", nil).Code)

	ts.do(http.MethodPut, "/api/project/prompt", textRequest{Text: "X"})
	ts.do(http.MethodPost, "/api/project/concepts", nil)

	rec := ts.do(http.MethodGet, "/api/outputs/bundle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{}, Options{RateLimit: "1-M"})

	first := ts.do(http.MethodPost, "/api/project/concepts", nil)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := ts.do(http.MethodPost, "/api/project/concepts", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, codeRateLimited, ts.errorCode(second))

	// Non-generation endpoints are not limited.
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/project", nil).Code)
}

func TestInvalidRateLimit(t *testing.T) {
	_, err := New(nil, nil, Options{RateLimit: "lots"})
	assert.Error(t, err)
}

func TestLab(t *testing.T) {
	gen := &fakeGenerator{enhanced: "better"}
	ts := newTestServer(t, gen, Options{})

	rec := ts.do(http.MethodPost, "/api/lab/generate", labGenerateRequest{Input: "a"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, gen.count("enhance"))

	rec = ts.do(http.MethodPost, "/api/lab/generate", labGenerateRequest{Input: "a", Instruction: "b"})
	require.Equal(t, http.StatusOK, rec.Code)
	var st struct {
		Output    string `json:"output"`
		IsLoading bool   `json:"isLoading"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "better", st.Output)
	assert.False(t, st.IsLoading)

	rec = ts.do(http.MethodPut, "/api/lab", textRequest{Text: "edited"})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "edited", st.Output)
}

func TestLabFailure(t *testing.T) {
	gen := &fakeGenerator{enhanceErr: errors.New("down")}
	ts := newTestServer(t, gen, Options{})

	rec := ts.do(http.MethodPost, "/api/lab/generate", labGenerateRequest{Input: "a", Instruction: "b"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, alertLab, ts.errorText(rec))
}

type libraryEntry struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Instruction string `json:"instruction"`
}

func (ts *testServer) library(rec *httptest.ResponseRecorder) []libraryEntry {
	ts.t.Helper()
	require.Equal(ts.t, http.StatusOK, rec.Code)
	var entries []libraryEntry
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &entries))
	return entries
}

func TestLibrary(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{}, Options{})

	assert.Empty(t, ts.library(ts.do(http.MethodGet, "/api/library", nil)))

	ts.do(http.MethodPost, "/api/library", savePromptRequest{Text: "A"})
	entries := ts.library(ts.do(http.MethodPost, "/api/library", savePromptRequest{Text: "B", Instruction: "warmer"}))
	require.Len(t, entries, 2)
	assert.Equal(t, "B", entries[0].Text)
	assert.Equal(t, "A", entries[1].Text)
	assert.Equal(t, "Generated Prompt", entries[1].Instruction)

	// Empty text saves nothing.
	assert.Len(t, ts.library(ts.do(http.MethodPost, "/api/library", savePromptRequest{})), 2)

	ts.do(http.MethodPut, "/api/project/prompt", textRequest{Text: "from the project"})
	entries = ts.library(ts.do(http.MethodPost, "/api/library/from-project", nil))
	require.Len(t, entries, 3)
	assert.Equal(t, "From Production Engine", entries[0].Instruction)

	entries = ts.library(ts.do(http.MethodDelete, "/api/library/"+entries[0].ID, nil))
	assert.Len(t, entries, 2)
}

func TestPick(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t), 0o600))

	picked := []string{path, filepath.Join(dir, "missing.png")}
	var pickErr error
	ts := newTestServer(t, &fakeGenerator{}, Options{Picker: func() ([]string, error) {
		return picked, pickErr
	}})

	rec := ts.do(http.MethodPost, "/api/pick?collection=reference", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Canceled bool      `json:"canceled"`
		State    stateView `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Canceled)
	require.Len(t, resp.State.ExactReferences, 1)
	assert.Equal(t, "site.png", resp.State.ExactReferences[0].Name)

	pickErr = ErrPickCanceled
	rec = ts.do(http.MethodPost, "/api/pick?collection=reference", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Canceled)
}

func TestPickDisabledWithoutPicker(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{}, Options{})
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, "/api/pick?collection=context", nil).Code)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{}, Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/project", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/health", "/api/health"},
		{"/api/outputs/5f0c2b7e-3c1d-4c55-9a43-0d2e8c7f1a10/video", "/api/outputs/*/video"},
		{"/api/blobs/5f0c2b7e-3c1d-4c55-9a43-0d2e8c7f1a10", "/api/blobs/*"},
		{"/api/project/generate-prompt", "/api/project/generate-prompt"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeEndpoint(tt.path))
		})
	}
}
