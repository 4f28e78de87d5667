package extract

import (
	"errors"
	"fmt"
)

// ErrUnknownExtractor tags a requested name with no registered extractor.
// It is recorded as a skipped outcome, never raised to the caller.
var ErrUnknownExtractor = errors.New("unknown extractor")

// Request stages, used to attribute fatal errors.
const (
	StageAcquire      = "acquire"
	StageAuthenticate = "authenticate"
	StageSelectTarget = "select_target"
	StageExtract      = "extract"
)

// RequestError is a fatal, request-aborting error. It carries the stage
// that failed and, when diagnostic capture succeeded, the path of a
// screenshot taken before the session was released.
type RequestError struct {
	Stage          string
	ScreenshotPath string
	Err            error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("extraction failed during %s: %v", e.Stage, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
