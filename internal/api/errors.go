package api

import (
	"encoding/json"
	"net/http"

	"github.com/antarticdonkeys/rentstate-hub/internal/result"
)

// errorBody is the error envelope returned on every failed request.
type errorBody struct {
	Message      string      `json:"message"`
	InternalCode result.Code `json:"internalCode"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeResultError maps a core operation failure onto the wire.
func writeResultError(w http.ResponseWriter, rerr *result.Error) {
	writeJSON(w, rerr.Status, errorBody{
		Message:      rerr.Message,
		InternalCode: rerr.Code,
	})
}

// writeBadRequest writes a 400 error response with the request_incomplete code.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeResultError(w, result.BadRequest(message))
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeResultError(w, result.Internal(result.CodeInternalError, message))
}

// decodeJSON parses the request body into v. It reports malformed bodies as
// 400s so handlers only deal with well-formed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
