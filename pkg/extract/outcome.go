package extract

import (
	"time"

	"github.com/ramosmx/clubpilot/pkg/login"
)

// OutcomeStatus classifies the result of one requested extractor.
type OutcomeStatus string

const (
	// StatusSuccess means the extractor returned a payload.
	StatusSuccess OutcomeStatus = "success"

	// StatusFailed means the extractor ran out of retries or hit a
	// permanent error. Non-fatal to sibling extractors.
	StatusFailed OutcomeStatus = "failed"

	// StatusSkippedUnknown means the requested name matched no
	// registered extractor. Non-fatal to sibling extractors.
	StatusSkippedUnknown OutcomeStatus = "skipped_unknown"
)

// Outcome is the immutable result for one requested extractor name.
// Unknown names and failed extractions are tagged variants here, never
// raised faults, preserving partial-success semantics in the type.
type Outcome struct {
	Extractor string         `json:"extractor"`
	Status    OutcomeStatus  `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Response aggregates the outcomes of one extraction request.
type Response struct {
	// Success is true iff at least one requested extractor succeeded.
	Success bool `json:"success"`

	// Message is a human-readable summary.
	Message string `json:"message"`

	// SessionID identifies the browser session used for the request.
	SessionID string `json:"session_id,omitempty"`

	// Clubs and SelectedClub echo the login result.
	Clubs        []login.Club `json:"clubs,omitempty"`
	SelectedClub *login.Club  `json:"selected_club,omitempty"`

	// Outcomes holds one entry per requested extractor name, in request
	// order.
	Outcomes []Outcome `json:"outcomes"`

	// Errors lists the error strings of failed and skipped extractors,
	// in request order.
	Errors []string `json:"errors,omitempty"`

	// Elapsed is the total wall time of the request.
	Elapsed time.Duration `json:"-"`

	// ElapsedMS is Elapsed in milliseconds for the wire.
	ElapsedMS int64 `json:"elapsed_ms"`

	// ScreenshotPath references a diagnostic capture, when enabled.
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	// ExtractedAt is when the request completed.
	ExtractedAt time.Time `json:"extracted_at"`
}
