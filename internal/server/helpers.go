package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response. Structured engine errors keep
// their code and details; everything else becomes a plain 500.
func writeError(w http.ResponseWriter, err error) {
	var engErr *schema.EngineError
	if errors.As(err, &engErr) {
		writeJSON(w, statusForCode(engErr.Code), map[string]any{
			"error":   engErr.Message,
			"code":    engErr.Code,
			"details": engErr.Details,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error": err.Error(),
		"code":  schema.ErrCodeExecution,
	})
}

// writeBadRequest reports a malformed request body or parameter.
func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": msg,
		"code":  schema.ErrCodeValidation,
	})
}

// statusForCode maps engine error codes to HTTP status codes.
func statusForCode(code string) int {
	switch code {
	case schema.ErrCodeNotFound, schema.ErrCodeToolNotFound:
		return http.StatusNotFound
	case schema.ErrCodeValidation, schema.ErrCodeDuplicateNode:
		return http.StatusBadRequest
	case schema.ErrCodeConflict:
		return http.StatusConflict
	case schema.ErrCodeCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// queryInt extracts an integer query param with a default value.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
