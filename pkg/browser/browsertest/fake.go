// Package browsertest provides in-memory fakes of the browser capability
// for tests that exercise the pool, login flow and orchestrator without a
// real browser.
package browsertest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ramosmx/clubpilot/pkg/browser"
)

// FakeHandle is a scriptable browser.Handle. Pages are keyed by URL;
// Navigate switches the current page and Content/ReadText serve from it.
type FakeHandle struct {
	mu sync.Mutex

	// Pages maps URL -> HTML content served by Content.
	Pages map[string]string

	// Texts maps selector -> text served by ReadText on any page.
	Texts map[string]string

	// NavigateErrs maps URL -> error returned once per Navigate call,
	// consumed in order.
	NavigateErrs map[string][]error

	// RedirectTo maps a navigated URL to the URL reported afterwards,
	// simulating server-side redirects (e.g. login_error).
	RedirectTo map[string]string

	// ClickURL maps a clicked selector to the URL the page lands on,
	// simulating form submissions and link navigation.
	ClickURL map[string]string

	currentURL  string
	closed      bool
	closeCalls  int
	navigations []string
	clicks      []string
	fills       map[string]string
	screenshots []string
	savedStates []string
}

// NewFakeHandle returns an empty fake handle.
func NewFakeHandle() *FakeHandle {
	return &FakeHandle{
		Pages:        make(map[string]string),
		Texts:        make(map[string]string),
		NavigateErrs: make(map[string][]error),
		RedirectTo:   make(map[string]string),
		ClickURL:     make(map[string]string),
		fills:        make(map[string]string),
	}
}

func (h *FakeHandle) Navigate(url string, _ browser.NavigateOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.navigations = append(h.navigations, url)
	if errs := h.NavigateErrs[url]; len(errs) > 0 {
		err := errs[0]
		h.NavigateErrs[url] = errs[1:]
		if err != nil {
			return err
		}
	}
	if to, ok := h.RedirectTo[url]; ok {
		h.currentURL = to
	} else {
		h.currentURL = url
	}
	return nil
}

func (h *FakeHandle) WaitFor(string, browser.WaitOptions) error { return nil }
func (h *FakeHandle) WaitForLoad(string) error                  { return nil }

func (h *FakeHandle) ReadText(selector string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if text, ok := h.Texts[selector]; ok {
		return text, nil
	}
	return "", fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
}

func (h *FakeHandle) Content() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if content, ok := h.Pages[h.currentURL]; ok {
		return content, nil
	}
	return "<html><body></body></html>", nil
}

func (h *FakeHandle) Click(selector string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clicks = append(h.clicks, selector)
	if to, ok := h.ClickURL[selector]; ok {
		h.currentURL = to
	}
	return nil
}

func (h *FakeHandle) Fill(selector, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fills[selector] = value
	return nil
}

func (h *FakeHandle) URL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentURL
}

// SetURL places the handle on a page directly, bypassing Navigate.
func (h *FakeHandle) SetURL(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentURL = url
}

func (h *FakeHandle) Screenshot(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.screenshots = append(h.screenshots, path)
	return os.WriteFile(path, []byte("png"), 0600)
}

func (h *FakeHandle) SaveState(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.savedStates = append(h.savedStates, path)
	return os.WriteFile(path, []byte("{}"), 0600)
}

func (h *FakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.closeCalls++
	return nil
}

// Closed reports whether Close was called.
func (h *FakeHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// CloseCalls returns how many times Close was invoked.
func (h *FakeHandle) CloseCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeCalls
}

// Navigations returns the URLs navigated to, in order.
func (h *FakeHandle) Navigations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.navigations...)
}

// Clicks returns the selectors clicked, in order.
func (h *FakeHandle) Clicks() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.clicks...)
}

// Fill values by selector.
func (h *FakeHandle) Filled(selector string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fills[selector]
}

// Screenshots returns the paths written by Screenshot.
func (h *FakeHandle) Screenshots() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.screenshots...)
}

// FakeCapability hands out fake handles and can be told to fail handle
// construction.
type FakeCapability struct {
	mu sync.Mutex

	// NewHandleErr, when set, fails every NewHandle call.
	NewHandleErr error

	// Configure customizes each new handle before it is returned.
	Configure func(*FakeHandle)

	handles []*FakeHandle
	ready   bool
}

// NewFakeCapability returns a ready fake capability.
func NewFakeCapability() *FakeCapability {
	return &FakeCapability{ready: true}
}

func (c *FakeCapability) NewHandle(ctx context.Context, _ browser.HandleOptions) (browser.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.NewHandleErr != nil {
		return nil, c.NewHandleErr
	}
	h := NewFakeHandle()
	if c.Configure != nil {
		c.Configure(h)
	}
	c.handles = append(c.handles, h)
	return h, nil
}

func (c *FakeCapability) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// SetReady toggles readiness.
func (c *FakeCapability) SetReady(ready bool) {
	c.mu.Lock()
	c.ready = ready
	c.mu.Unlock()
}

// Handles returns every handle created so far.
func (c *FakeCapability) Handles() []*FakeHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*FakeHandle(nil), c.handles...)
}
