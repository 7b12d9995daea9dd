package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrClosed", ErrClosed, "resource is closed"},
		{"ErrCancelled", ErrCancelled, "job was cancelled"},
		{"ErrTimeout", ErrTimeout, "operation timed out"},
		{"ErrCapacityExceeded", ErrCapacityExceeded, "capacity exceeded"},
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "without hint",
			err: &ValidationError{
				Module: "scheduler",
				Field:  "workers",
				Value:  -1,
				Reason: "must be positive",
			},
			want: "scheduler: invalid workers=-1 (must be positive)",
		},
		{
			name: "with hint",
			err: &ValidationError{
				Module: "channel",
				Field:  "capacity",
				Value:  -3,
				Reason: "cannot be negative",
				Hint:   "use Rendezvous, Bounded(n) or Unbounded",
			},
			want: "channel: invalid capacity=-3 (cannot be negative) - use Rendezvous, Bounded(n) or Unbounded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	verr := NewValidationError("test", "field", 0, "test")

	if !errors.Is(verr, ErrInvalidConfiguration) {
		t.Error("ValidationError should wrap ErrInvalidConfiguration")
	}

	if result := verr.WithHint("hint"); result != verr {
		t.Error("WithHint should return the same instance")
	}
}

func TestOperationError(t *testing.T) {
	cause := errors.New("buffer full")
	err := NewOperationError("channel", "Send", cause).WithContext("capacity 8")

	if got, want := err.Error(), "channel.Send failed: buffer full (capacity 8)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("OperationError should unwrap to its cause")
	}
	if result := err.WithContext("other"); result != err {
		t.Error("WithContext should return the same instance")
	}
}

func TestIsCancellation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"cancelled", ErrCancelled, true},
		{"timeout", ErrTimeout, true},
		{"joined", fmt.Errorf("%w: %w", ErrCancelled, errors.New("boom")), true},
		{"closed", ErrClosed, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCancellation(tt.err); got != tt.want {
				t.Errorf("IsCancellation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidationError(t *testing.T) {
	wrapped := &OperationError{Cause: NewValidationError("test", "field", 0, "test")}
	if !IsValidationError(wrapped) {
		t.Error("wrapped validation error should be detected")
	}
	if IsValidationError(ErrTimeout) {
		t.Error("timeout is not a validation error")
	}
	if IsValidationError(nil) {
		t.Error("nil is not a validation error")
	}
}

func TestErrorMessages(t *testing.T) {
	err := NewValidationError("mymodule", "myfield", 42, "must be less than 10").
		WithHint("use a value between 0 and 10")

	msg := err.Error()
	for _, part := range []string{"mymodule", "myfield", "42", "must be less than 10", "use a value between 0 and 10"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error message should contain %q, got %q", part, msg)
		}
	}
}
