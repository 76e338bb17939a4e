package domain

import "errors"

// Error taxonomy for a reconciliation pass. Callers wrap these sentinels with
// fmt.Errorf("...: %w", ...) and classify with errors.Is.
var (
	// ErrAuth means credentials are invalid or expired. Never retried by the
	// engine; surfaced so the re-authorization flow can be triggered.
	ErrAuth = errors.New("authentication failed")

	// ErrTransientFetch covers network failures, rate limits, timeouts and
	// 5xx responses. Retried with backoff by the scheduler.
	ErrTransientFetch = errors.New("transient fetch failure")

	// ErrInsufficientFunds means the pot source rejected a movement. No state
	// is mutated; the condition may self-resolve by the next tick.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConsistency marks an internal invariant violation, e.g. a negative
	// shortfall. Fatal to the tick, never silently repaired.
	ErrConsistency = errors.New("consistency violation")
)

// ErrorKind maps an error to its taxonomy name for results and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrConsistency):
		return "consistency"
	case errors.Is(err, ErrTransientFetch):
		return "transient"
	default:
		return "unknown"
	}
}

// Retryable reports whether the scheduler should retry a failed pass with
// backoff before the next scheduled tick. Auth failures need re-authorization
// and an insufficient-funds rejection waits for the next tick, so only
// transient fetch failures qualify.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransientFetch)
}
