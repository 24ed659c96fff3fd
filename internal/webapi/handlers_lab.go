package webapi

import (
	"context"
	"net/http"

	"github.com/fpang/archiflow/internal/lab"
	"github.com/fpang/archiflow/internal/workspace"
)

// GET /api/lab
func handleGetLab(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	respondJSON(w, http.StatusOK, ws.Lab.Snapshot())
}

type labGenerateRequest struct {
	Input       string `json:"input"`
	Instruction string `json:"instruction"`
}

// POST /api/lab/generate
func handleLabGenerate(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	var req labGenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := ws.Lab.Generate(context.WithoutCancel(r.Context()), req.Input, req.Instruction)
	respondGeneration(w, st, err, alertLab)
}

// PUT /api/lab
//
// Replaces the lab output with a user edit.
func handleSetLabOutput(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respondJSON(w, http.StatusOK, ws.Lab.SetOutput(req.Text))
}

// --- Saved Prompt Library ---

// GET /api/library
func handleListLibrary(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	prompts, err := ws.Library.List(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load library", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, prompts)
}

type savePromptRequest struct {
	Text        string `json:"text"`
	Instruction string `json:"instruction"`
}

// POST /api/library
//
// Empty text saves nothing; the response is the unchanged library.
func handleSavePrompt(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	var req savePromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	savePrompt(w, r, ws, req.Text, req.Instruction)
}

// POST /api/library/from-project
func handleSaveFromProject(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	savePrompt(w, r, ws, ws.Project.Snapshot().GeneratedPrompt, lab.ProjectInstruction)
}

func savePrompt(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, text, instruction string) {
	if _, err := ws.Library.Save(r.Context(), text, instruction); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to save prompt", err.Error())
		return
	}
	handleListLibrary(w, r, ws)
}

// DELETE /api/library/{id}
func handleDeletePrompt(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	if err := ws.Library.Delete(r.Context(), r.PathValue("id")); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to delete prompt", err.Error())
		return
	}
	handleListLibrary(w, r, ws)
}
