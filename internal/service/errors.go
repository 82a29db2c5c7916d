package service

import "errors"

// Error kinds returned by the services. Callers match them with errors.Is;
// the wrapped text carries detail that is safe to show to the caller.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)
