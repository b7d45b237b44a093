package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "infrastat/pkg/domain-errors"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorEnvelope is the JSON error shape returned by every endpoint.
type errorEnvelope struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteError translates a domain error into the standard JSON error envelope.
// Internal errors omit the description so store/portal details never leak to
// callers; everything else carries the human-readable message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	env := errorEnvelope{Error: string(code)}
	if code != dErrors.CodeInternal {
		env.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), env)
}

// DecodeJSON decodes a request body into T, rejecting unknown fields.
// On failure it writes a bad-request envelope and returns ok=false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "failed to decode request body", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON request body"))
		return req, false
	}
	return req, true
}
