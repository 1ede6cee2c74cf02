package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/trainer-scheduler/internal/persistence"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"name": "required", "fee": "negative"}}
	if got := withFields.Error(); got != "validation failed: fee, name" {
		t.Fatalf("expected sorted field list, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	base.merge("clients[1]", map[string]string{"name": "required"})
	if got := base.FieldErrors["clients[1].name"]; got != "required" {
		t.Fatalf("expected merge to copy prefixed field, got %q", got)
	}

	base.merge("", map[string]string{"plain": "x"})
	if _, ok := base.FieldErrors["plain"]; !ok {
		t.Fatalf("expected merge without prefix to keep field name")
	}
}

func TestMapRepoError(t *testing.T) {
	t.Parallel()

	if mapRepoError(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
	if err := mapRepoError(fmt.Errorf("load: %w", persistence.ErrNotFound)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mapRepoError(persistence.ErrDuplicate); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	var vErr *ValidationError
	if err := mapRepoError(persistence.ErrConstraintViolation); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	boom := errors.New("boom")
	if err := mapRepoError(boom); err != boom {
		t.Fatalf("expected unknown errors to pass through, got %v", err)
	}
}
