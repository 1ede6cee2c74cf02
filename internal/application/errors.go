package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/persistence"
)

var (
	// ErrNotFound is returned when the requested client or session does not exist.
	ErrNotFound = model.ErrNotFound
	// ErrConflict is returned when a write collides with an existing record.
	ErrConflict = model.ErrConflict
	// ErrInvalidRange is returned for a malformed date window.
	ErrInvalidRange = model.ErrInvalidRange
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver,
// prefixing each field when prefix is set.
func (v *ValidationError) merge(prefix string, other map[string]string) {
	for field, msg := range other {
		if prefix != "" {
			field = prefix + "." + field
		}
		v.add(field, msg)
	}
}

// mapRepoError translates persistence sentinels into the application taxonomy.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("record", err.Error())
		return vErr
	default:
		return err
	}
}
