package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := AuthRejected("token endpoint returned 401", errors.New("401"))

	if !errors.Is(err, ErrAuthRejected) {
		t.Error("expected errors.Is to match ErrAuthRejected")
	}
	if errors.Is(err, ErrAuthUnavailable) {
		t.Error("AuthRejected must not match ErrAuthUnavailable")
	}

	wrapped := fmt.Errorf("acquire token: %w", err)
	if !errors.Is(wrapped, ErrAuthRejected) {
		t.Error("expected match through fmt.Errorf wrapping")
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := FetchError("states request failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if !strings.Contains(err.Error(), "dial tcp: timeout") {
		t.Errorf("error string should include cause: %s", err)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"malformed", MalformedRecord("index %d", 3), CodeMalformedRecord},
		{"wrapped auth", fmt.Errorf("x: %w", AuthUnavailable("missing", nil)), CodeAuthUnavailable},
		{"plain error", errors.New("boom"), CodeInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestStatusForDistinguishesTerminals(t *testing.T) {
	if StatusFor(CodeAuthRejected) == StatusFor(CodeFetchError) {
		t.Error("auth failure and no-data must map to distinct statuses")
	}
	if StatusFor(CodeAuthUnavailable) != http.StatusServiceUnavailable {
		t.Errorf("unexpected status for AUTH_UNAVAILABLE: %d", StatusFor(CodeAuthUnavailable))
	}
	if Internal(nil).HTTPStatus() != http.StatusInternalServerError {
		t.Error("internal errors map to 500")
	}
}

func TestWithDetail(t *testing.T) {
	err := New(CodeDeliveryFailure, "batch rejected").WithDetail("batch", 2)
	if err.Details["batch"] != 2 {
		t.Errorf("expected detail batch=2, got %v", err.Details)
	}
}
