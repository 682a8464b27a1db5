package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestCarryonError_Error(t *testing.T) {
	err := &CarryonError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "session state not found",
	}

	expected := "NOT_FOUND: session state not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("query is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "query is required" {
		t.Errorf("Message = %q, want %q", err.Message, "query is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("session_state")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "session_state" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "session_state")
	}
}

func TestNewStoreUnavailable_Unwraps(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStoreUnavailable(cause)

	if err.Status != 503 {
		t.Errorf("Status = %d, want 503", err.Status)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestNewSummarizerUnavailable(t *testing.T) {
	err := NewSummarizerUnavailable("none")

	if err.Code != ErrSummarizerUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrSummarizerUnavailable)
	}
	if err.Details["provider"] != "none" {
		t.Errorf("Details[provider] = %v, want none", err.Details["provider"])
	}
}

func TestNewSummarizerFailed(t *testing.T) {
	err := NewSummarizerFailed(fmt.Errorf("rate limited"))

	if err.Code != ErrSummarizerFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrSummarizerFailed)
	}
	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)

	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("x"), ErrNotFound, true},
		{"different code", NewNotFound("x"), ErrInvalidRequest, false},
		{"wrapped", fmt.Errorf("search: %w", NewInvalidRequest("bad")), ErrInvalidRequest, true},
		{"plain error", fmt.Errorf("boom"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewStoreUnavailable(fmt.Errorf("locked")))

	cErr, ok := As(wrapped)
	if !ok {
		t.Fatal("As() ok = false, want true")
	}
	if cErr.Code != ErrStoreUnavailable {
		t.Errorf("Code = %q, want %q", cErr.Code, ErrStoreUnavailable)
	}

	if _, ok := As(fmt.Errorf("plain")); ok {
		t.Error("As(plain) ok = true, want false")
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/missing.jsonl")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["path"] != "/tmp/missing.jsonl" {
		t.Errorf("Details[path] = %v, want /tmp/missing.jsonl", err.Details["path"])
	}
}
