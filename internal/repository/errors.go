package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoCandidate is returned by the pairing transaction when no eligible
	// ready-to-exchange photo exists.
	ErrNoCandidate = errors.New("no candidate photo available")
	// ErrConflict is returned when a row was changed by a concurrent
	// transaction between read and write.
	ErrConflict = errors.New("conflicting concurrent update")
)
