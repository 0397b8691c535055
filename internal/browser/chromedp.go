package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ChromeOptions configures a chrome-backed Browser instance.
type ChromeOptions struct {
	// Headless toggles browser visibility.
	Headless bool

	// SlowMoMs is a per-action delay in milliseconds, mirroring
	// Playwright/Puppeteer's slowMo knob. Chrome does not apply it to its
	// own actions; SlowMoDelay only converts it to a time.Duration.
	SlowMoMs int

	// ViewportWidth and ViewportHeight default to 1920x1080 if either is
	// zero, matching the teacher's capture defaults.
	ViewportWidth  int64
	ViewportHeight int64

	Logger *logrus.Logger
}

// Chrome drives a single Chrome tab over the Chrome DevTools Protocol. One
// Chrome instance backs exactly one browser tab for the lifetime of a
// discovery run, matching the single-threaded-cooperative model of the
// Explorer Core: no parallelism happens inside one Chrome.
type Chrome struct {
	allocCtx   context.Context
	cancelAlloc context.CancelFunc
	tabCtx     context.Context
	cancelTab  context.CancelFunc

	consoleErrCh chan string
	log          *logrus.Logger
}

// NewChrome launches a headless (or headed) Chrome instance and begins
// console-error capture immediately, before any navigation occurs.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	viewportWidth := opts.ViewportWidth
	viewportHeight := opts.ViewportHeight
	if viewportWidth == 0 || viewportHeight == 0 {
		viewportWidth = 1920
		viewportHeight = 1080
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)

	tabOpts := []chromedp.ContextOption{
		// Suppress chromedp's internal error output for CDP events it
		// cannot unmarshal — these arise from version skew between the
		// installed Chrome binary and the pinned cdproto definitions and
		// are harmless; the affected events are simply dropped.
		chromedp.WithLogf(func(string, ...any) {}),
		chromedp.WithErrorf(func(string, ...any) {}),
		chromedp.WithDebugf(func(string, ...any) {}),
	}
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, tabOpts...)

	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("browser: failed to start chrome: %w", err)
	}

	c := &Chrome{
		allocCtx:     allocCtx,
		cancelAlloc:  cancelAlloc,
		tabCtx:       tabCtx,
		cancelTab:    cancelTab,
		consoleErrCh: make(chan string, 256),
		log:          log,
	}

	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*runtime.EventConsoleAPICalled); ok && e.Type == runtime.APITypeError {
			text := formatConsoleArgs(e.Args)
			select {
			case c.consoleErrCh <- text:
			default:
				// Buffer full: drop rather than block the CDP event loop.
			}
		}
	})

	if err := chromedp.Run(tabCtx, chromedp.EmulateViewport(viewportWidth, viewportHeight)); err != nil {
		log.WithError(err).Warn("browser: failed to set viewport")
	}

	return c, nil
}

// SlowMoDelay returns opts.SlowMoMs as a time.Duration. No caller in this
// repository sleeps for it: neither Chrome nor the Explorer Core delays its
// actions by this amount.
func SlowMoDelay(opts ChromeOptions) time.Duration {
	return time.Duration(opts.SlowMoMs) * time.Millisecond
}

func formatConsoleArgs(args []*runtime.RemoteObject) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a.Value != nil {
			parts = append(parts, string(a.Value))
		} else {
			parts = append(parts, a.Description)
		}
	}
	out, err := json.Marshal(parts)
	if err != nil {
		return ""
	}
	return string(out)
}

func (c *Chrome) Goto(ctx context.Context, url string) error {
	if err := chromedp.Run(c.runCtx(ctx), chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("browser: navigate to %q: %w", url, err)
	}
	return nil
}

func (c *Chrome) Evaluate(ctx context.Context, script string, out any) error {
	if err := chromedp.Run(c.runCtx(ctx), chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("browser: evaluate failed: %w", err)
	}
	return nil
}

func (c *Chrome) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(c.runCtx(waitCtx), chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("browser: wait for selector %q: %w", selector, err)
	}
	return nil
}

func (c *Chrome) ClickSelector(ctx context.Context, selector string) error {
	if err := chromedp.Run(c.runCtx(ctx), chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("browser: click selector %q: %w", selector, err)
	}
	return nil
}

// exactTextClickScript finds the first interactive-ish element whose
// trimmed textContent exactly equals the requested text and clicks it via a
// synthetic MouseEvent dispatched in-page, since CSS has no exact-text
// selector.
const exactTextClickScript = `(() => {
	const want = %s;
	const candidates = document.querySelectorAll('a,button,[role="button"],[role="tab"],[role="menuitem"],[onclick]');
	for (const el of candidates) {
		if ((el.textContent || '').trim() === want) {
			el.dispatchEvent(new MouseEvent('click', {bubbles: true, cancelable: true, view: window}));
			return true;
		}
	}
	return false;
})()`

func (c *Chrome) ClickText(ctx context.Context, text string) error {
	encoded, err := json.Marshal(text)
	if err != nil {
		return fmt.Errorf("browser: encode click text: %w", err)
	}
	var clicked bool
	script := fmt.Sprintf(exactTextClickScript, string(encoded))
	if err := chromedp.Run(c.runCtx(ctx), chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("browser: click text %q: %w", text, err)
	}
	if !clicked {
		return fmt.Errorf("browser: no element with exact text %q", text)
	}
	return nil
}

func (c *Chrome) ClickAt(ctx context.Context, x, y float64) error {
	action := chromedp.ActionFunc(func(ctx context.Context) error {
		if err := input.DispatchMouseEvent(input.MousePressed, x, y).WithButton(input.Left).WithClickCount(1).Do(ctx); err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseReleased, x, y).WithButton(input.Left).WithClickCount(1).Do(ctx)
	})
	if err := chromedp.Run(c.runCtx(ctx), action); err != nil {
		return fmt.Errorf("browser: click at (%.0f, %.0f): %w", x, y, err)
	}
	return nil
}

func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := chromedp.Run(c.runCtx(ctx), chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return buf, nil
}

func (c *Chrome) Title(ctx context.Context) (string, error) {
	var title string
	if err := chromedp.Run(c.runCtx(ctx), chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("browser: title: %w", err)
	}
	return title, nil
}

func (c *Chrome) URL(ctx context.Context) (string, error) {
	var url string
	if err := chromedp.Run(c.runCtx(ctx), chromedp.Evaluate("window.location.href", &url)); err != nil {
		return "", fmt.Errorf("browser: url: %w", err)
	}
	return url, nil
}

func (c *Chrome) OuterHTML(ctx context.Context) (string, error) {
	var out string
	if err := chromedp.Run(c.runCtx(ctx), chromedp.OuterHTML("html", &out, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("browser: outer html: %w", err)
	}
	return out, nil
}

func (c *Chrome) Fill(ctx context.Context, selector, text string) error {
	actions := []chromedp.Action{
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	}
	if err := chromedp.Run(c.runCtx(ctx), actions...); err != nil {
		return fmt.Errorf("browser: fill %q: %w", selector, err)
	}
	return nil
}

func (c *Chrome) ConsoleErrors() <-chan string {
	return c.consoleErrCh
}

func (c *Chrome) Close() error {
	c.cancelTab()
	c.cancelAlloc()
	return nil
}

// runCtx binds ctx's deadline, if any, onto the tab context so every action
// respects both the caller's timeout and the tab's own chromedp association.
// ctx itself is never passed to chromedp.Run directly: it carries no
// chromedp target/browser values, only ever a deadline.
func (c *Chrome) runCtx(ctx context.Context) context.Context {
	if deadline, ok := ctx.Deadline(); ok {
		derived, _ := context.WithDeadline(c.tabCtx, deadline)
		return derived
	}
	return c.tabCtx
}
