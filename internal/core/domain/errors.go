package domain

import "errors"

// Error taxonomy shared by every layer. Callers match with errors.Is; the
// API error handler is the single place these turn into status codes.
var (
	ErrValidation         = errors.New("validation error")
	ErrUnauthorized       = errors.New("invalid username or password")
	ErrPendingApproval    = errors.New("account pending approval")
	ErrForbidden          = errors.New("access forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidID          = errors.New("invalid identifier")
	ErrConflict           = errors.New("conflict")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)

// IsRetryable reports whether err is an infrastructure fault a caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}
