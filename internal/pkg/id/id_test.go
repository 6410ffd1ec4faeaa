package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	if a == b {
		t.Fatalf("New() returned duplicate ids: %s", a)
	}
	for _, s := range []string{a, b} {
		if err := uuid.Validate(s); err != nil {
			t.Fatalf("New() returned invalid uuid %q: %v", s, err)
		}
	}
}
