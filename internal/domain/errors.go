package domain

import "errors"

// Sentinel errors let the HTTP layer map gateway failures to status codes
var (
	ErrInvalidFormat      = errors.New("invalid UUID format")
	ErrUnauthorized       = errors.New("invalid or missing bearer token")
	ErrForbidden          = errors.New("bearer token can only be generated for new UUIDs")
	ErrStorage            = errors.New("storage failure")
	ErrStorageUnavailable = errors.New("storage temporarily unavailable")
)
