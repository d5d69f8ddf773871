// Package apperr defines the sentinel errors shared across service boundaries.
package apperr

import "errors"

var (
	// ErrNotFound marks lookups of unregistered canonical ids or missing files.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks optimistic-concurrency failures (If-Match mismatch).
	ErrConflict = errors.New("conflict")
	// ErrAlreadyExists marks creation over an existing workspace file.
	ErrAlreadyExists = errors.New("already exists")
	// ErrMalformedPath marks a note path whose basename has no extension
	// segment. Such paths violate the add-from-markdown precondition and are
	// rejected instead of being split into garbage name metadata.
	ErrMalformedPath = errors.New("malformed note path")
)
