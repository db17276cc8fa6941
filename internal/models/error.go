package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Generation flow errors
	ErrValidation      = errors.New("validation failed")
	ErrLimitReached    = errors.New("daily generation limit reached")
	ErrUpstream        = errors.New("upstream service failed")
	ErrInvalidState    = errors.New("operation not allowed in current step")
	ErrUnknownStyle    = errors.New("unknown style")
	ErrMissingIdentity = errors.New("fingerprint is required")
)

// LimitExceededError carries the limit status that caused a rejection.
// It matches ErrLimitReached with errors.Is.
type LimitExceededError struct {
	Status *LimitStatus
}

func (e *LimitExceededError) Error() string {
	return ErrLimitReached.Error()
}

func (e *LimitExceededError) Is(target error) bool {
	return target == ErrLimitReached
}
