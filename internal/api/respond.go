// Package api provides the HTTP REST surface: routing, middleware, and
// request handlers for accounts, campaigns, and campaign content.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// errorResponse is the JSON body written for every non-2xx response.
type errorResponse struct {
	Detail string `json:"detail"`
}

// writeJSON serialises v to the response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Detail: fmt.Sprintf(format, args...)})
}

// decodeJSON parses the request body into v. Unknown fields are rejected so
// client typos surface as 400s instead of silently dropped fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parsing request body: %w", err)
	}
	return nil
}
