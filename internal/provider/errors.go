package provider

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cardpot/potsync/internal/domain"
)

// classifyStatus maps a non-200 provider response onto the domain error
// taxonomy. 401/403 mean the token is dead; 429 and 5xx are worth retrying;
// a rejected movement with an insufficient-balance code is its own kind.
func classifyStatus(path string, status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: status %d: %w", path, status, domain.ErrAuth)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%s: status %d: %w", path, status, domain.ErrTransientFetch)
	case strings.Contains(string(body), "insufficient"):
		return fmt.Errorf("%s: status %d: %s: %w", path, status, body, domain.ErrInsufficientFunds)
	default:
		return fmt.Errorf("%s: status %d: %s: %w", path, status, body, domain.ErrTransientFetch)
	}
}
