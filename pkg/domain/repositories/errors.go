package repositories

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no record
	ErrNotFound = errors.New("not found")
	// ErrRunFrozen is returned when writing to a run that has reached a terminal status
	ErrRunFrozen = errors.New("run is frozen")
)
