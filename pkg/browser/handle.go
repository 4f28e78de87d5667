package browser

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// pwHandle is the playwright-backed Handle. It wraps one isolated browser
// context and its single page.
type pwHandle struct {
	context   playwright.BrowserContext
	page      playwright.Page
	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

func (h *pwHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *pwHandle) Navigate(url string, opts NavigateOptions) error {
	if h.isClosed() {
		return ErrHandleClosed
	}

	gotoOpts := playwright.PageGotoOptions{}
	if s := waitUntilState(opts.WaitUntil); s != nil {
		gotoOpts.WaitUntil = s
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(opts.Timeout)
	}

	if _, err := h.page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (h *pwHandle) WaitFor(selector string, opts WaitOptions) error {
	if h.isClosed() {
		return ErrHandleClosed
	}

	waitOpts := playwright.PageWaitForSelectorOptions{}
	if s := selectorState(opts.State); s != nil {
		waitOpts.State = s
	}
	if opts.Timeout > 0 {
		waitOpts.Timeout = playwright.Float(opts.Timeout)
	}

	if _, err := h.page.WaitForSelector(selector, waitOpts); err != nil {
		return fmt.Errorf("wait for %q failed: %w", selector, err)
	}
	return nil
}

func (h *pwHandle) WaitForLoad(state string) error {
	if h.isClosed() {
		return ErrHandleClosed
	}

	opts := playwright.PageWaitForLoadStateOptions{}
	if s := loadState(state); s != nil {
		opts.State = s
	}
	if err := h.page.WaitForLoadState(opts); err != nil {
		return fmt.Errorf("wait for load state failed: %w", err)
	}
	return nil
}

func (h *pwHandle) ReadText(selector string) (string, error) {
	if h.isClosed() {
		return "", ErrHandleClosed
	}

	element, err := h.page.QuerySelector(selector)
	if err != nil {
		return "", fmt.Errorf("selector query failed: %w", err)
	}
	if element == nil {
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	text, err := element.TextContent()
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return text, nil
}

func (h *pwHandle) Content() (string, error) {
	if h.isClosed() {
		return "", ErrHandleClosed
	}
	content, err := h.page.Content()
	if err != nil {
		return "", fmt.Errorf("content extraction failed: %w", err)
	}
	return content, nil
}

func (h *pwHandle) Click(selector string) error {
	if h.isClosed() {
		return ErrHandleClosed
	}
	if err := h.page.Click(selector); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

func (h *pwHandle) Fill(selector, value string) error {
	if h.isClosed() {
		return ErrHandleClosed
	}
	if err := h.page.Fill(selector, value); err != nil {
		return fmt.Errorf("fill %q failed: %w", selector, err)
	}
	return nil
}

func (h *pwHandle) URL() string {
	if h.isClosed() {
		return ""
	}
	return h.page.URL()
}

func (h *pwHandle) Screenshot(path string) error {
	if h.isClosed() {
		return ErrHandleClosed
	}
	_, err := h.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return nil
}

func (h *pwHandle) SaveState(path string) error {
	if h.isClosed() {
		return ErrHandleClosed
	}
	if _, err := h.context.StorageState(path); err != nil {
		return fmt.Errorf("storage state save failed: %w", err)
	}
	return nil
}

// Close releases the page and its context. Idempotent; the browser itself
// is shared and stays up.
func (h *pwHandle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()

		_ = h.page.Close() // continue cleanup regardless
		err = h.context.Close()
	})
	return err
}

func waitUntilState(s string) *playwright.WaitUntilState {
	switch s {
	case "load":
		return playwright.WaitUntilStateLoad
	case "domcontentloaded":
		return playwright.WaitUntilStateDomcontentloaded
	case "networkidle":
		return playwright.WaitUntilStateNetworkidle
	default:
		return nil
	}
}

func selectorState(s string) *playwright.WaitForSelectorState {
	switch s {
	case "attached":
		return playwright.WaitForSelectorStateAttached
	case "detached":
		return playwright.WaitForSelectorStateDetached
	case "visible":
		return playwright.WaitForSelectorStateVisible
	case "hidden":
		return playwright.WaitForSelectorStateHidden
	default:
		return nil
	}
}

func loadState(s string) *playwright.LoadState {
	switch s {
	case "load":
		return playwright.LoadStateLoad
	case "domcontentloaded":
		return playwright.LoadStateDomcontentloaded
	case "networkidle":
		return playwright.LoadStateNetworkidle
	default:
		return nil
	}
}
