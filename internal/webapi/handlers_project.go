package webapi

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/archiflow/internal/project"
	"github.com/fpang/archiflow/internal/reference"
	"github.com/fpang/archiflow/internal/workspace"
)

// uploadField is the multipart form field carrying uploaded files.
const uploadField = "files"

// GET /api/project
func handleGetProject(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	respondProject(w, http.StatusOK, ws.ID, ws.Project.Snapshot())
}

type textRequest struct {
	Text string `json:"text"`
}

// PUT /api/project/description
func handleSetDescription(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respondProject(w, http.StatusOK, ws.ID, ws.Project.Dispatch(project.SetDescription{Text: req.Text}))
}

// POST /api/project/confirm
func handleConfirmContext(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	respondProject(w, http.StatusOK, ws.ID, ws.Project.Dispatch(project.ConfirmContext{}))
}

// collectionParam reads ?collection=, answering 400 when it is invalid.
func collectionParam(w http.ResponseWriter, r *http.Request) (project.Collection, bool) {
	c, err := project.ParseCollection(r.URL.Query().Get("collection"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return c, true
}

// POST /api/project/files?collection=context|reference
func (s *Server) handleUploadFiles(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	c, ok := collectionParam(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart upload", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	uploads := make([]reference.Upload, 0, len(headers))
	for _, fh := range headers {
		u, err := readUpload(fh)
		if err != nil {
			httpError(w, http.StatusBadRequest, "failed to read uploaded file", err.Error())
			return
		}
		uploads = append(uploads, u)
	}
	respondProject(w, http.StatusOK, ws.ID, ws.Project.AddFiles(c, uploads...))
}

func readUpload(fh *multipart.FileHeader) (reference.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return reference.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return reference.Upload{}, err
	}
	return reference.Upload{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// DELETE /api/project/files/{id}?collection=context|reference
func handleRemoveFile(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	c, ok := collectionParam(w, r)
	if !ok {
		return
	}
	respondProject(w, http.StatusOK, ws.ID, ws.Project.Dispatch(project.RemoveFile{Collection: c, ID: r.PathValue("id")}))
}

type reuseRequest struct {
	OutputID   string `json:"outputId"`
	Collection string `json:"collection"`
}

// POST /api/project/reuse
func handleReuseOutput(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	var req reuseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := project.ParseCollection(req.Collection)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := ws.Project.ReuseOutput(req.OutputID, c)
	if errors.Is(err, project.ErrOutputNotFound) {
		httpError(w, http.StatusNotFound, "output not found")
		return
	}
	respondProject(w, http.StatusOK, ws.ID, st)
}

type selectionRequest struct {
	ReferenceID string `json:"referenceId"`
}

// PUT /api/project/selection
func handleSelectReference(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	var req selectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respondProject(w, http.StatusOK, ws.ID, ws.Project.Dispatch(project.SelectReference{ID: req.ReferenceID}))
}

// PUT /api/project/prompt
func handleEditPrompt(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respondProject(w, http.StatusOK, ws.ID, ws.Project.Dispatch(project.EditPrompt{Text: req.Text}))
}

type settingsRequest struct {
	AspectRatio string `json:"aspectRatio"`
	Resolution  string `json:"resolution"`
}

// PUT /api/project/settings
//
// Either field may be omitted; present fields must be valid values.
func handleChangeSettings(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var change project.ChangeSettings
	if req.AspectRatio != "" {
		ar, err := project.ParseAspectRatio(req.AspectRatio)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		change.AspectRatio = ar
	}
	if req.Resolution != "" {
		size, err := project.ParseImageSize(req.Resolution)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		change.Resolution = size
	}
	respondProject(w, http.StatusOK, ws.ID, ws.Project.Dispatch(change))
}

// DELETE /api/project/video-jobs/{id}
func handleDismissVideoJob(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	respondProject(w, http.StatusOK, ws.ID, ws.Project.Dispatch(project.DismissVideoJob{ID: r.PathValue("id")}))
}

// --- Generation ---
//
// Generation calls detach from the request context so a client that goes
// away does not abort the call; the result still lands in the workspace.

// POST /api/project/generate-prompt
func handleGeneratePrompt(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	st, err := ws.Project.GeneratePrompt(context.WithoutCancel(r.Context()))
	respondGeneration(w, newProjectView(ws.ID, st), err, alertGeneratePrompt)
}

type refineRequest struct {
	Instruction string `json:"instruction"`
}

// POST /api/project/refine
func handleRefinePrompt(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	var req refineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := ws.Project.RefinePromptFurther(context.WithoutCancel(r.Context()), req.Instruction)
	respondGeneration(w, newProjectView(ws.ID, st), err, alertRefinePrompt)
}

// POST /api/project/concepts
func handleGenerateConcepts(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	st, err := ws.Project.GenerateConcepts(context.WithoutCancel(r.Context()))
	respondGeneration(w, newProjectView(ws.ID, st), err, alertConcept)
}

// POST /api/project/render
func handleRenderHighRes(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	st, err := ws.Project.RenderHighRes(context.WithoutCancel(r.Context()))
	respondGeneration(w, newProjectView(ws.ID, st), err, alertRender)
}

// POST /api/outputs/{id}/video
//
// Queues the job and returns 202 at once. The job shows up in videoJobs
// until it resolves into an output or an error.
func handleRenderVideo(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	job, source, err := ws.Project.BeginVideo(r.PathValue("id"))
	switch {
	case errors.Is(err, project.ErrOutputNotFound):
		httpError(w, http.StatusNotFound, "output not found")
		return
	case errors.Is(err, project.ErrNotImage):
		httpError(w, http.StatusBadRequest, "only image outputs can be rendered to video")
		return
	case err != nil:
		httpError(w, http.StatusInternalServerError, "failed to queue video", err.Error())
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := ws.Project.RunVideo(ctx, job, source); err != nil {
			log.Warn().Err(err).Str("session_id", ws.ID).Str("job_id", job.ID).Msg("Video job ended with error")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"jobId": job.ID,
		"state": newProjectView(ws.ID, ws.Project.Snapshot()),
	})
}
