package models

import "errors"

var (
	// ErrUnauthenticated is returned when a remote write needs a signed-in identity and none is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrPermissionDenied is returned when the stored owner differs from the caller.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound is returned when an update or delete target does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTransientIO covers network and file failures with no finer classification.
	ErrTransientIO = errors.New("transient i/o failure")
	// ErrParseFailure marks a single document or DTO that could not be decoded.
	ErrParseFailure = errors.New("parse failure")
	// ErrInvalidRecord is returned for records rejected before any I/O.
	ErrInvalidRecord = errors.New("invalid record")
)
