package webapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fpang/archiflow/internal/blob"
	"github.com/fpang/archiflow/internal/bundle"
	"github.com/fpang/archiflow/internal/media"
	"github.com/fpang/archiflow/internal/output"
	"github.com/fpang/archiflow/internal/workspace"
)

// DELETE /api/outputs/{id}
func handleRemoveOutput(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	respondProject(w, http.StatusOK, ws.ID, ws.Project.RemoveOutput(r.Context(), r.PathValue("id")))
}

// GET /api/outputs/{id}/download
//
// Serves the output bytes as an attachment named
// archiflow-output-<id>.<ext>.
func (s *Server) handleDownloadOutput(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	o, ok := ws.Project.Snapshot().Outputs.Find(r.PathValue("id"))
	if !ok {
		httpError(w, http.StatusNotFound, "output not found")
		return
	}

	var (
		mimeType string
		data     []byte
	)
	switch m := o.Media.(type) {
	case output.Image:
		var err error
		mimeType, data, err = m.Decode()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "output image is unreadable", err.Error())
			return
		}
	case output.Video:
		b, err := s.blobs.Get(r.Context(), blob.IDFromURL(m.BlobURL))
		if errors.Is(err, blob.ErrNotFound) {
			httpError(w, http.StatusNotFound, "video no longer available")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to read video", err.Error())
			return
		}
		mimeType, data = b.MIMEType, b.Data
	default:
		httpError(w, http.StatusInternalServerError, "output has no media", o.ID)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", o.DownloadName()))
	writeMedia(w, mimeType, data)
}

// GET /api/outputs/{id}/image
//
// Serves an image output inline; the project snapshot links here instead
// of embedding the data URL.
func handleOutputImage(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	o, ok := ws.Project.Snapshot().Outputs.Find(r.PathValue("id"))
	if !ok {
		httpError(w, http.StatusNotFound, "output not found")
		return
	}
	img, ok := o.Image()
	if !ok {
		httpError(w, http.StatusNotFound, "output has no image")
		return
	}
	mimeType, data, err := img.Decode()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "output image is unreadable", err.Error())
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	writeMedia(w, mimeType, data)
}

// GET /api/project/files/{id}/preview
//
// Serves a reference file's preview from either collection.
func handleFilePreview(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	st := ws.Project.Snapshot()
	id := r.PathValue("id")
	f, ok := st.ContextFiles.Find(id)
	if !ok {
		f, ok = st.ExactReferences.Find(id)
	}
	if !ok || f.PreviewURL == "" {
		httpError(w, http.StatusNotFound, "preview not found")
		return
	}
	mimeType, data, err := media.DecodeDataURL(f.PreviewURL)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "preview is unreadable", err.Error())
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	writeMedia(w, mimeType, data)
}

func writeMedia(w http.ResponseWriter, mimeType string, data []byte) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GET /api/outputs/bundle
//
// The archive is built in memory so a failure can still be reported as a
// JSON error instead of a truncated download.
func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	outputs := ws.Project.Snapshot().Outputs
	if len(outputs) == 0 {
		httpError(w, http.StatusNotFound, "no outputs to bundle")
		return
	}

	var buf bytes.Buffer
	if _, err := bundle.Write(r.Context(), &buf, outputs, s.blobs); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to build bundle", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", `attachment; filename="archiflow-outputs.zip"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// GET /api/blobs/{id}
//
// Blob ids are unguessable UUIDs, so no session is required; the browser
// loads them straight into <video> elements.
func (s *Server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	b, err := s.blobs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, blob.ErrNotFound) {
		httpError(w, http.StatusNotFound, "blob not found")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to read blob", err.Error())
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")
	writeMedia(w, b.MIMEType, b.Data)
}
