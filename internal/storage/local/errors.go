package local

import "errors"

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidKey is returned for ids or collections that would escape the store root
	ErrInvalidKey = errors.New("invalid key")
)
