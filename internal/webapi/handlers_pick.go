package webapi

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fpang/archiflow/internal/reference"
	"github.com/fpang/archiflow/internal/workspace"
)

// POST /api/pick?collection=context|reference
//
// Opens the native file dialog on the machine running the server and adds
// the chosen files, in place of a browser upload.
func (s *Server) handlePick(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	c, ok := collectionParam(w, r)
	if !ok {
		return
	}

	paths, err := s.opts.Picker()
	if errors.Is(err, ErrPickCanceled) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"canceled": true,
			"state":    newProjectView(ws.ID, ws.Project.Snapshot()),
		})
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "file picker failed", err.Error())
		return
	}

	uploads := make([]reference.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("Skipping unreadable picked file")
			continue
		}
		// The MIME type is sniffed from the bytes.
		uploads = append(uploads, reference.Upload{Name: filepath.Base(p), Data: data})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"canceled": false,
		"state":    newProjectView(ws.ID, ws.Project.AddFiles(c, uploads...)),
	})
}
