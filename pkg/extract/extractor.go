// Package extract coordinates login and pluggable data extractors over
// pooled browser sessions, aggregating partial results under a hard
// concurrency ceiling.
package extract

import (
	"context"

	"github.com/ramosmx/clubpilot/pkg/browser"
)

// Descriptor identifies an extractor to callers.
type Descriptor struct {
	// Name is the unique key used to request this extractor.
	Name string `json:"name"`

	// Description is a human-readable summary of what it extracts.
	Description string `json:"description"`

	// RequiresNavigation indicates the extractor navigates away from the
	// page it is handed.
	RequiresNavigation bool `json:"requires_navigation"`
}

// Extractor pulls one kind of structured data out of an authenticated
// browser session. Implementations are stateless and safe for concurrent
// use; all per-request state lives in the handle.
type Extractor interface {
	// Descriptor returns the extractor's identity. Immutable.
	Descriptor() Descriptor

	// Extract navigates (if needed) and returns structured data from the
	// page. The handle is already authenticated.
	Extract(ctx context.Context, handle browser.Handle, baseURL string) (map[string]any, error)
}
