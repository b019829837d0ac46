package storage

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrUnsupportedDriver is returned when the configured database driver is unknown.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
