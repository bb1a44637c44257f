package app

import "errors"

var (
	// ErrStoreUnavailable is returned when no database is configured.
	ErrStoreUnavailable = errors.New("Database not configured")
	ErrNotFound         = errors.New("not found")

	// ErrUnauthorized covers missing, invalid and expired access tokens.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("admin access required")

	// ErrAuthUnavailable wraps transport failures talking to the hosted auth service.
	ErrAuthUnavailable = errors.New("auth service unavailable")

	ErrStorageUnavailable = errors.New("file storage not configured")
	ErrUnknownBucket      = errors.New("unknown bucket")
	ErrFileTooLarge       = errors.New("file too large")
	ErrUnsupportedMedia   = errors.New("unsupported file type")
)

// ValidationError carries a message that is safe to show to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
