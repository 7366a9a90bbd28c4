package pntfs

import "testing"

func TestNameFromBytes(t *testing.T) {
	b := make([]byte, 12)
	copy(b, "hello")
	if got := nameFromBytes(b); got != "hello" {
		t.Fatalf("nameFromBytes = %q, want %q", got, "hello")
	}
}

func TestValidateName(t *testing.T) {
	if !validateName("readme") {
		t.Error("expected a short ASCII name to validate")
	}
	if validateName("") {
		t.Error("expected an empty name to be rejected")
	}
	if validateName("waytoolongname") {
		t.Error("expected a name over 11 bytes to be rejected")
	}
}
