package webapi

import (
	"errors"
	"net/http"

	"github.com/fpang/archiflow/internal/workspace"
)

// sessionHeader carries the session id when the query string does not.
const sessionHeader = "X-Session-ID"

type workspaceHandler func(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace)

func sessionID(r *http.Request) string {
	if id := r.URL.Query().Get("sessionId"); id != "" {
		return id
	}
	return r.Header.Get(sessionHeader)
}

// withWorkspace resolves the request's session before calling h.
func (s *Server) withWorkspace(h workspaceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r)
		if id == "" {
			httpError(w, http.StatusBadRequest, "sessionId is required")
			return
		}
		ws, err := s.sessions.Get(id)
		if errors.Is(err, workspace.ErrNotFound) {
			httpError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "session lookup failed", err.Error())
			return
		}
		h(w, r, ws)
	}
}

// POST /api/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ws := s.sessions.Create()
	respondJSON(w, http.StatusCreated, map[string]string{"sessionId": ws.ID})
}
