package browser

import (
	"context"
	"errors"
	"strings"

	"github.com/playwright-community/playwright-go"
)

var (
	// ErrUnavailable indicates the browser engine is not initialized or
	// has lost its connection.
	ErrUnavailable = errors.New("browser engine unavailable")

	// ErrHandleClosed indicates an operation on a closed handle.
	ErrHandleClosed = errors.New("browser handle closed")

	// ErrElementNotFound indicates no element matched the selector.
	ErrElementNotFound = errors.New("element not found")

	// ErrPoolExhausted indicates no pool slot became available within the
	// acquisition timeout.
	ErrPoolExhausted = errors.New("session pool exhausted")
)

// IsTransient reports whether an error is a transient I/O failure worth
// retrying: navigation timeouts, element-wait timeouts and engine crashes.
// Cancellation and logic errors (bad credentials, missing elements) are
// never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrElementNotFound) || errors.Is(err, ErrPoolExhausted) {
		return false
	}

	var pwErr *playwright.Error
	if errors.As(err, &pwErr) {
		if pwErr.Name == "TimeoutError" {
			return true
		}
		msg := strings.ToLower(pwErr.Message)
		return strings.Contains(msg, "crash") || strings.Contains(msg, "target closed")
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "target closed")
}
