package login

import (
	"fmt"
	"strings"
)

// AuthError indicates the site rejected the credentials. It is fatal for
// the request and never retried.
type AuthError struct {
	Username string
	Reason   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %q: %s", e.Username, e.Reason)
}

// TargetError indicates the requested club could not be resolved after a
// successful authentication. Distinct from AuthError so callers can tell
// bad credentials from a bad club selector.
type TargetError struct {
	RequestedType string
	RequestedName string
	Available     []string
}

func (e *TargetError) Error() string {
	msg := fmt.Sprintf("club not found: %s (%s)", e.RequestedName, e.RequestedType)
	if len(e.Available) > 0 {
		msg += "; available: " + strings.Join(e.Available, ", ")
	}
	return msg
}
