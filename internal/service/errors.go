package service

import "errors"

// Error taxonomy shared by all services. Handlers map these onto HTTP
// statuses in one place (internal/api).
var (
	// ErrNotFound: a referenced recipe/user/ingredient id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden: the caller is neither the author nor a superuser.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials: login with a wrong email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError is a malformed-input failure (empty tag list, duplicate
// ingredients, out-of-range amounts, self-subscription).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation builds a ValidationError with a fixed message.
func Validation(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConflictError is a duplicate or missing edge on a toggle operation.
// Surfaced as 400 with a descriptive message.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func Conflict(msg string) error {
	return &ConflictError{Message: msg}
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
