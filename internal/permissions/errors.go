package permissions

import (
	"errors"
)

// Sentinel errors surfaced to the API layer. They are never retried or
// downgraded internally: each represents a genuine authorization decision
// or input defect.
var (
	// ErrNotFound means the referenced project, user, or group does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the caller lacks the required capability.
	ErrForbidden = errors.New("forbidden")
)

// BadRequestError marks structurally or semantically invalid input, such as
// granting to the owner or revoking a grant that does not exist.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

// badRequest creates a BadRequestError.
func badRequest(message string) error {
	return &BadRequestError{Message: message}
}

// IsBadRequest reports whether err is a BadRequestError.
func IsBadRequest(err error) bool {
	var br *BadRequestError
	return errors.As(err, &br)
}
