package errors

import "errors"

var (
	// ErrNotFound is returned when a patch, wiki target, or user is absent.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is returned when the acting user lacks the
	// required role for an operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrConflict is returned when a state transition is attempted on a
	// patch that is no longer pending.
	ErrConflict = errors.New("conflict")
	// ErrDataIntegrity marks a stored patch with a proposed value but no
	// captured original. Such a record indicates corrupted prior writes.
	ErrDataIntegrity = errors.New("data integrity violation")
	// ErrUpstream is returned when the wiki API, the CAPTCHA verifier, or
	// the session store fails.
	ErrUpstream = errors.New("upstream failure")
)

// ValidationError carries a user-facing message for rejected input
// (empty description, no detected changes, failed verification).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Validation(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
