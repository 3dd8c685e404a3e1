package leads

import "errors"

var (
	// ErrHoneypot is returned when the hidden company field is filled in.
	// Callers answer as if the lead was accepted.
	ErrHoneypot = errors.New("leads: honeypot field filled")

	// ErrSaveFailed wraps failures to persist a lead upstream.
	ErrSaveFailed = errors.New("leads: failed to save lead")
)

// ValidationError describes the first field that failed validation.
// Message is safe to return to the submitter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
