package webapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/fpang/archiflow/internal/lab"
	"github.com/fpang/archiflow/internal/project"
)

// Alert texts returned with 502 responses when a generation call fails.
const (
	alertGeneratePrompt = "Failed to generate prompt. Please try again."
	alertRefinePrompt   = "Failed to refine prompt."
	alertConcept        = "Failed to generate concept."
	alertRender         = "Failed to render image."
	alertLab            = "Lab generation failed"
)

// maxJSONBody caps JSON request bodies. Uploads go through multipart.
const maxJSONBody = 1 << 20

// Error codes carried in errorBody.Code.
const (
	codeInvalidRequest   = "invalid_request"
	codeNotFound         = "not_found"
	codeSuperseded       = "superseded"
	codeTooLarge         = "too_large"
	codeRateLimited      = "rate_limited"
	codeGenerationFailed = "generation_failed"
	codeInternal         = "internal"
)

// errorBody is the JSON body of every failed request. Error is shown to
// the user verbatim, which for failed generations is the alert text.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// State is the current snapshot when the request was superseded.
	State interface{} `json:"state,omitempty"`
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return codeInvalidRequest
	case http.StatusNotFound:
		return codeNotFound
	case http.StatusConflict:
		return codeSuperseded
	case http.StatusRequestEntityTooLarge:
		return codeTooLarge
	case http.StatusTooManyRequests:
		return codeRateLimited
	case http.StatusBadGateway:
		return codeGenerationFailed
	default:
		return codeInternal
	}
}

// respondJSON encodes data before writing anything, so an encoding
// failure still produces a clean 500.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		log.Error().Err(err).Int("status", status).Msg("Failed to encode JSON response")
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"internal error","code":"internal"}` + "\n")
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// respondProject answers with the linked project view.
func respondProject(w http.ResponseWriter, status int, sessionID string, st project.State) {
	respondJSON(w, status, newProjectView(sessionID, st))
}

// httpError answers with an errorBody. Only clientMsg reaches the caller;
// internalDetails are logged.
func httpError(w http.ResponseWriter, status int, clientMsg string, internalDetails ...string) {
	if len(internalDetails) > 0 {
		log.Error().
			Int("status", status).
			Str("clientMsg", clientMsg).
			Strs("internalDetails", internalDetails).
			Msg("Request failed")
	}
	respondJSON(w, status, errorBody{Error: clientMsg, Code: errorCode(status)})
}

// decodeJSON reads a bounded JSON body into v, answering 400 (or 413 for
// an oversized body) on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httpError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	httpError(w, http.StatusBadRequest, "invalid JSON body")
	return false
}

// respondGeneration answers a generation request. A superseded request
// gets 409 with the current state; any other failure gets 502 with the
// operation's alert text.
func respondGeneration(w http.ResponseWriter, st interface{}, err error, alert string) {
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, st)
	case errors.Is(err, project.ErrStale), errors.Is(err, lab.ErrStale):
		respondJSON(w, http.StatusConflict, errorBody{
			Error: "superseded by a newer request",
			Code:  codeSuperseded,
			State: st,
		})
	default:
		httpError(w, http.StatusBadGateway, alert, err.Error())
	}
}
