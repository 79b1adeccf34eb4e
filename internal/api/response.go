package api

import (
	"encoding/json"
	"net/http"
)

// envelope mirrors the response shape the handler packages produce, so
// router-level errors look the same as handler-level ones.
type envelope struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// JSONError writes an API error in the standard envelope.
func JSONError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	json.NewEncoder(w).Encode(envelope{Error: err})
}

// notFoundHandler serves requests for paths outside the route table.
func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	JSONError(w, ErrRouteNotFound)
}

// methodNotAllowedHandler serves requests with an unsupported verb.
func methodNotAllowedHandler(w http.ResponseWriter, _ *http.Request) {
	JSONError(w, ErrMethodNotAllowed)
}
