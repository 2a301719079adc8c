package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingPayload  = errors.New("missing payload")
	ErrInvalidModel    = errors.New("invalid model")
	ErrBodyTooLarge    = errors.New("request body too large")
	ErrMissingAPIKey   = errors.New("missing GEMINI_API_KEY configuration")
	ErrUpstreamTimeout = errors.New("upstream request timed out")
)

// UpstreamError carries a non-2xx upstream answer. Status and Body are passed
// through to the caller unchanged.
type UpstreamError struct {
	Status int
	Body   json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.Status)
}

// Envelope is the failure body written to the caller.
type Envelope struct {
	Error any    `json:"error"`
	Where string `json:"where,omitempty"`
}

// WriteJSON encodes v with the given status. HTML characters are left
// unescaped so raw upstream bodies are written byte for byte.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, Envelope{Error: message})
}

// WriteJSONErrorAt is WriteJSONError with the failing pipeline stage attached.
func WriteJSONErrorAt(w http.ResponseWriter, statusCode int, message, where string) {
	WriteJSON(w, statusCode, Envelope{Error: message, Where: where})
}
