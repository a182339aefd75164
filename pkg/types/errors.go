package types

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStorageUnavailable is returned when a session storage backend cannot be reached.
	ErrStorageUnavailable = errors.New("session storage unavailable")

	// ErrUnknownBackend is returned for an unrecognized storage backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrClosed is returned when using a storage or registration after Close.
	ErrClosed = errors.New("closed")
)
