package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestResolutionErrorMessage(t *testing.T) {
	cause := errors.New("i/o timeout")

	tests := []struct {
		name string
		err  *ResolutionError
		want string
	}{
		{"reason", &ResolutionError{Reason: "SERVFAIL", Err: cause}, "SERVFAIL"},
		{"wrapped only", &ResolutionError{Err: cause}, "i/o timeout"},
		{"nothing set", &ResolutionError{Domain: "x.test"}, "resolution failed"},
		{"not found", NotFound("x.test", nil), "not found"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("%s: Error() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("lookup: %w", NotFound("x.test", nil))) {
		t.Errorf("expected wrapped NotFound to be recognised")
	}
	if IsNotFound(&ResolutionError{Reason: "REFUSED"}) {
		t.Errorf("REFUSED is not a not-found error")
	}
	if IsNotFound(errors.New("not found")) {
		t.Errorf("plain errors are not ResolutionErrors")
	}
}
