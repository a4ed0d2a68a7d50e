package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a caller-chosen id is already taken
	ErrConflict = errors.New("conflict: id already exists")

	// ErrBackendUnavailable is returned when a backend cannot be reached or refused the call.
	// The resilient store absorbs it by serving the call from the local backend.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrStorageWrite is returned when the local filesystem rejects a read or write
	ErrStorageWrite = errors.New("local storage write failed")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
