// Package webapi exposes archiflow workspaces over a JSON HTTP API. The
// same handler serves the local web binary and the Lambda function.
package webapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"github.com/fpang/archiflow/internal/blob"
	"github.com/fpang/archiflow/internal/workspace"
)

// DefaultRateLimit applies to generation endpoints when Options leaves it empty.
const DefaultRateLimit = "30-M"

// DefaultMaxUploadBytes bounds one multipart upload request.
const DefaultMaxUploadBytes int64 = 64 << 20

// ErrPickCanceled is returned by a Picker when the user closes the dialog.
var ErrPickCanceled = errors.New("file selection canceled")

// Picker asks the local user for files and returns their paths.
type Picker func() ([]string, error)

// Options configures a Server.
type Options struct {
	RateLimit      string
	MaxUploadBytes int64
	// Picker enables POST /api/pick. Only the local web binary sets it.
	Picker Picker
}

// Server routes API calls to session workspaces.
type Server struct {
	sessions *workspace.Registry
	blobs    blob.Store
	opts     Options
	limiter  *stdlib.Middleware
	mux      *http.ServeMux
}

// New builds a server over a session registry and the blob store the
// registry's pipelines write videos to.
func New(sessions *workspace.Registry, blobs blob.Store, opts Options) (*Server, error) {
	if opts.RateLimit == "" {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	rl, err := newRateLimiter(opts.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", opts.RateLimit, err)
	}

	s := &Server{
		sessions: sessions,
		blobs:    blobs,
		opts:     opts,
		limiter:  rl,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the API wrapped in logging, metrics, CORS and security
// header middleware.
func (s *Server) Handler() http.Handler {
	return withTelemetry(withCORS(withSecurityHeaders(s.mux)))
}

func (s *Server) routes() {
	m := s.mux
	m.HandleFunc("GET /api/health", handleHealth)
	m.HandleFunc("POST /api/sessions", s.handleCreateSession)

	m.HandleFunc("GET /api/project", s.withWorkspace(handleGetProject))
	m.HandleFunc("PUT /api/project/description", s.withWorkspace(handleSetDescription))
	m.HandleFunc("POST /api/project/confirm", s.withWorkspace(handleConfirmContext))
	m.HandleFunc("POST /api/project/files", s.withWorkspace(s.handleUploadFiles))
	m.HandleFunc("DELETE /api/project/files/{id}", s.withWorkspace(handleRemoveFile))
	m.HandleFunc("GET /api/project/files/{id}/preview", s.withWorkspace(handleFilePreview))
	m.HandleFunc("POST /api/project/reuse", s.withWorkspace(handleReuseOutput))
	m.HandleFunc("PUT /api/project/selection", s.withWorkspace(handleSelectReference))
	m.HandleFunc("PUT /api/project/prompt", s.withWorkspace(handleEditPrompt))
	m.HandleFunc("PUT /api/project/settings", s.withWorkspace(handleChangeSettings))
	m.HandleFunc("DELETE /api/project/video-jobs/{id}", s.withWorkspace(handleDismissVideoJob))

	m.Handle("POST /api/project/generate-prompt", s.limited(handleGeneratePrompt))
	m.Handle("POST /api/project/refine", s.limited(handleRefinePrompt))
	m.Handle("POST /api/project/concepts", s.limited(handleGenerateConcepts))
	m.Handle("POST /api/project/render", s.limited(handleRenderHighRes))
	m.Handle("POST /api/outputs/{id}/video", s.limited(handleRenderVideo))

	m.HandleFunc("DELETE /api/outputs/{id}", s.withWorkspace(handleRemoveOutput))
	m.HandleFunc("GET /api/outputs/{id}/download", s.withWorkspace(s.handleDownloadOutput))
	m.HandleFunc("GET /api/outputs/{id}/image", s.withWorkspace(handleOutputImage))
	m.HandleFunc("GET /api/outputs/bundle", s.withWorkspace(s.handleBundle))
	m.HandleFunc("GET /api/blobs/{id}", s.handleGetBlob)

	m.HandleFunc("GET /api/lab", s.withWorkspace(handleGetLab))
	m.HandleFunc("PUT /api/lab", s.withWorkspace(handleSetLabOutput))
	m.Handle("POST /api/lab/generate", s.limited(handleLabGenerate))

	m.HandleFunc("GET /api/library", s.withWorkspace(handleListLibrary))
	m.HandleFunc("POST /api/library", s.withWorkspace(handleSavePrompt))
	m.HandleFunc("DELETE /api/library/{id}", s.withWorkspace(handleDeletePrompt))
	m.HandleFunc("POST /api/library/from-project", s.withWorkspace(handleSaveFromProject))

	if s.opts.Picker != nil {
		m.HandleFunc("POST /api/pick", s.withWorkspace(s.handlePick))
	}
}

// limited wraps a workspace handler with the per-IP rate limiter.
func (s *Server) limited(h workspaceHandler) http.Handler {
	return s.limiter.Handler(s.withWorkspace(h))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
