// Package browser defines the browser capability the explorer consumes and
// a chromedp-backed implementation of it. The core engine code never
// imports chromedp directly — it only ever sees this interface, which keeps
// the hard-to-test CDP plumbing isolated to one package.
package browser

import (
	"context"
	"time"
)

// Browser is the capability required by the site graph engine: navigation,
// DOM query, click, screenshot, and console-error capture. Every method may
// suspend — callers must pass a context carrying whatever deadline applies.
type Browser interface {
	// Goto navigates to url and waits for the load event.
	Goto(ctx context.Context, url string) error

	// Evaluate runs script in the page and decodes its JSON result into out.
	// out may be nil if the result is not needed.
	Evaluate(ctx context.Context, script string, out any) error

	// WaitForSelector blocks until selector matches at least one visible
	// node, or timeout elapses.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	// ClickSelector clicks the first element matched by a CSS selector
	// (used for CSS-path, test-id and aria-label locator strategies).
	ClickSelector(ctx context.Context, selector string) error

	// ClickText clicks the first element whose exact trimmed visible text
	// equals text.
	ClickText(ctx context.Context, text string) error

	// ClickAt dispatches a synthetic pointer click at viewport coordinates
	// (x, y) — the fallback locator strategy.
	ClickAt(ctx context.Context, x, y float64) error

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// Title returns document.title.
	Title(ctx context.Context) (string, error)

	// URL returns the current document location, post any client-side
	// redirects or hash changes.
	URL(ctx context.Context) (string, error)

	// OuterHTML returns the serialized HTML of the current document, used
	// by the fingerprinter and the login/settle detectors.
	OuterHTML(ctx context.Context) (string, error)

	// Fill types text into the first visible element matched by selector,
	// clearing any existing value first.
	Fill(ctx context.Context, selector, text string) error

	// ConsoleErrors returns a channel of console error message text.
	// Capture begins at Browser construction, before any navigation, so
	// errors from the very first page load are not missed.
	ConsoleErrors() <-chan string

	// Close releases the underlying browser resources. Safe to call once;
	// a cleanup path tolerates it failing.
	Close() error
}
