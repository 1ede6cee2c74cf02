package model

import (
	"errors"

	"github.com/example/trainer-scheduler/internal/calendar"
)

var (
	// ErrNotFound is returned when an operation references an id absent from the store.
	ErrNotFound = errors.New("model: not found")
	// ErrConflict is returned when an insert collides with an existing natural key or id.
	ErrConflict = errors.New("model: conflict")
	// ErrInvalidRange marks a malformed date window. Engines degrade to empty
	// results instead of returning it; services report it to callers.
	ErrInvalidRange = calendar.ErrInvalidRange
)
