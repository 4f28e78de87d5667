package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// EngineOptions configures the shared browser engine.
type EngineOptions struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool

	// SlowMo slows down operations by the given milliseconds, for
	// debugging against the live site.
	SlowMo float64

	// SkipInstall skips the playwright driver/browser installation step.
	// Useful when the image already ships the browsers.
	SkipInstall bool
}

// Engine owns the playwright lifecycle: one driver, one Chromium instance,
// and an isolated context per handle. It is the production Capability
// implementation.
type Engine struct {
	mu      sync.Mutex
	opts    EngineOptions
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewEngine creates an engine. The browser is not launched until
// Initialize is called.
func NewEngine(opts EngineOptions) *Engine {
	return &Engine{opts: opts}
}

// Initialize starts the playwright driver and launches Chromium. Must be
// called once at startup before any handle is created. Calling it again
// is a no-op.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		return nil
	}

	// Discard driver output so it does not interleave with our logs.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if !e.opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(e.opts.Headless),
	}
	if e.opts.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(e.opts.SlowMo)
	}

	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	e.pw = pw
	e.browser = b
	return nil
}

// Ready reports whether the engine can serve new handles.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.browser != nil && e.browser.IsConnected()
}

// NewHandle creates a new isolated browsing context with its own cookies,
// storage and viewport. The context never shares state with other handles.
func (e *Engine) NewHandle(ctx context.Context, opts HandleOptions) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	b := e.browser
	e.mu.Unlock()
	if b == nil || !b.IsConnected() {
		return nil, ErrUnavailable
	}

	if opts.Viewport.Width == 0 || opts.Viewport.Height == 0 {
		opts.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.TimezoneID == "" {
		opts.TimezoneID = DefaultTimezoneID
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
		Locale:     playwright.String(opts.Locale),
		TimezoneId: playwright.String(opts.TimezoneID),
	}
	if opts.StorageStatePath != "" {
		if _, err := os.Stat(opts.StorageStatePath); err == nil {
			contextOpts.StorageStatePath = playwright.String(opts.StorageStatePath)
		}
	}

	pc, err := b.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	pc.SetDefaultTimeout(opts.Timeout)

	page, err := pc.NewPage()
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &pwHandle{context: pc, page: page}, nil
}

// Close shuts down the browser and stops the playwright driver. Safe to
// call multiple times.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	if e.browser != nil {
		if err := e.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.browser = nil
	}
	if e.pw != nil {
		if err := e.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.pw = nil
	}
	return firstErr
}
