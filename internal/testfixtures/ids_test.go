package testfixtures

import (
	"slices"
	"testing"
)

func TestIDGenerator(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("")
	next := gen.NextFunc()
	if a, b := next(), gen.Next(); a != "id-1" || b != "id-2" {
		t.Fatalf("unexpected sequence %q %q", a, b)
	}
	if got := gen.Issued(); !slices.Equal(got, []string{"id-1", "id-2"}) {
		t.Fatalf("unexpected issued ids %v", got)
	}

	var nilGen *IDGenerator
	if id := nilGen.NextFunc()(); id != "" {
		t.Fatalf("nil generator should yield empty ids, got %q", id)
	}
}
