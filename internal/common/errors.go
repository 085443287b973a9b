package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Validation errors; see ValidationError.
	ErrorValidation = errors.New("validation error")

	// Job payload errors.
	ErrorMissingUserID = errors.New("missing userId")
	ErrorMissingFileID = errors.New("missing fileId")
)

// ValidationError reports bad client input. Msg is safe to show to clients.
// It matches ErrorValidation with errors.Is.
type ValidationError struct {
	Msg string
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrorValidation }
