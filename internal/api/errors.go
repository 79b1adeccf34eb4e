package api

import "net/http"

// Error is the wire form of an API-level failure. Handler packages carry
// their own copies of the envelope; this type covers errors raised before a
// request reaches a handler (unknown route, wrong method).
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrRouteNotFound is returned for paths outside the route table.
	ErrRouteNotFound = &Error{
		Code:    "NOT_FOUND",
		Message: "Unknown endpoint",
		Status:  http.StatusNotFound,
	}

	// ErrMethodNotAllowed is returned when the path exists but the verb
	// does not.
	ErrMethodNotAllowed = &Error{
		Code:    "METHOD_NOT_ALLOWED",
		Message: "Method not allowed for this endpoint",
		Status:  http.StatusMethodNotAllowed,
	}
)
