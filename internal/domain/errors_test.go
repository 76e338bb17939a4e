package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("card balance: %w", ErrAuth), "auth"},
		{fmt.Errorf("deposit: %w", ErrInsufficientFunds), "insufficient_funds"},
		{fmt.Errorf("shortfall: %w", ErrConsistency), "consistency"},
		{fmt.Errorf("timeout: %w", ErrTransientFetch), "transient"},
		{errors.New("something else"), "unknown"},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(fmt.Errorf("fetch: %w", ErrTransientFetch)) {
		t.Error("transient failures must be retryable")
	}
	if Retryable(fmt.Errorf("fetch: %w", ErrAuth)) {
		t.Error("auth failures must not be retried")
	}
	if Retryable(fmt.Errorf("deposit: %w", ErrInsufficientFunds)) {
		t.Error("insufficient funds waits for the next tick")
	}
}
