package browser

import "context"

// HandleOptions configures a new isolated browsing context.
type HandleOptions struct {
	// Viewport sets the initial viewport size.
	Viewport Viewport

	// Locale is the browser locale, e.g. "es-MX".
	Locale string

	// TimezoneID is the IANA timezone for the context.
	TimezoneID string

	// Timeout is the default timeout for page operations (in milliseconds).
	Timeout float64

	// StorageStatePath optionally points to a saved storage-state file
	// (cookies, localStorage) used to restore a previous session.
	StorageStatePath string
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful.
	// Valid values: "load", "domcontentloaded", "networkidle".
	WaitUntil string

	// Timeout in milliseconds (0 means the context default).
	Timeout float64
}

// WaitOptions configures element waiting behavior.
type WaitOptions struct {
	// State to wait for: "attached", "detached", "visible", "hidden".
	State string

	// Timeout in milliseconds (0 means the context default).
	Timeout float64
}

// Handle is an opaque, stateful connection to one isolated browsing
// context. Each handle owns its own cookies, storage and viewport and is
// never shared across sessions.
type Handle interface {
	// Navigate loads the given URL.
	Navigate(url string, opts NavigateOptions) error

	// WaitFor blocks until an element matching selector reaches the
	// requested state.
	WaitFor(selector string, opts WaitOptions) error

	// WaitForLoad blocks until the page reaches the given load state
	// ("load", "domcontentloaded", "networkidle").
	WaitForLoad(state string) error

	// ReadText returns the text content of the first element matching
	// selector.
	ReadText(selector string) (string, error)

	// Content returns the full HTML content of the current page.
	Content() (string, error)

	// Click clicks the first element matching selector.
	Click(selector string) error

	// Fill fills an input element with the given value.
	Fill(selector, value string) error

	// URL returns the current page URL.
	URL() string

	// Screenshot writes a PNG capture of the current viewport to path.
	Screenshot(path string) error

	// SaveState writes the context storage state (cookies, localStorage)
	// to path as an opaque blob.
	SaveState(path string) error

	// Close releases the browsing context. Safe to call more than once.
	Close() error
}

// Capability is the browser-automation surface the core consumes. The
// playwright Engine is the production implementation; tests substitute
// fakes.
type Capability interface {
	// NewHandle creates a new isolated browsing context.
	NewHandle(ctx context.Context, opts HandleOptions) (Handle, error)

	// Ready reports whether the engine can serve new handles.
	Ready() bool
}

// Default context values, matching the target site's expectations.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultLocale         = "es-MX"
	DefaultTimezoneID     = "America/Mexico_City"
	DefaultTimeout        = 30000.0 // 30 seconds in milliseconds
)
