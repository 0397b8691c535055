// Package browsertest provides a hand-written fake implementing
// browser.Browser, used to exercise the extractor, dispatcher, login driver,
// settler and explorer without a real Chrome instance. The interface is
// small enough that a fake is clearer here than a generated mock.
package browsertest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/tomasbasham/sitegraph/internal/browser"
	"github.com/tomasbasham/sitegraph/internal/extract"
)

var _ browser.Browser = (*Fake)(nil)

// Element is the scripted shape of one interactive element on a fake page,
// matching the JSON extract.js would emit from a real DOM.
type Element struct {
	Kind      string
	Text      string
	Href      string
	AriaLabel string
	TestID    string
	CSSPath   string
	X, Y, W, H float64
}

// Outcome describes what happens when a scripted element is clicked.
// Exactly one of NavigateTo or MutateTo should be set; neither set means the
// click is a no-op (used for elements that exist only to be filtered out).
type Outcome struct {
	// NavigateTo, if non-empty, is the URL the fake "navigates" to — Case A
	// in Phase 2 child queuing.
	NavigateTo string

	// MutateTo, if non-nil, replaces the current page's HTML/Title/Elements
	// in place without changing the URL — Case B, an SPA state transition.
	MutateTo *Page
}

// Page is one scripted page in the fake site.
type Page struct {
	URL      string
	HTML     string
	Title    string
	Elements []Element

	// Outcomes maps a triggering element's Text to what clicking it does.
	Outcomes map[string]Outcome

	// ConsoleErrors are emitted once when this page is navigated to.
	ConsoleErrors []string

	// HasLoginForm marks this page as containing email/password inputs. Fake
	// does not read it: the login driver inspects HTML, so a login form is
	// scripted by putting the inputs in HTML.
	HasLoginForm bool
}

// Fake is a scripted, in-memory implementation of browser.Browser.
type Fake struct {
	mu      sync.Mutex
	pages   map[string]*Page
	current *Page
	consoleCh chan string
}

// New builds a Fake seeded with pages, keyed by their URL field.
func New(pages ...*Page) *Fake {
	f := &Fake{
		pages:     make(map[string]*Page, len(pages)),
		consoleCh: make(chan string, 64),
	}
	for _, p := range pages {
		f.pages[p.URL] = p
	}
	return f
}

// AddPage registers an additional page after construction, for tests that
// build up scripted SPA states incrementally.
func (f *Fake) AddPage(p *Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[p.URL] = p
}

func (f *Fake) Goto(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.pages[url]
	if !ok {
		return fmt.Errorf("browsertest: no page scripted for %q", url)
	}
	f.current = p
	for _, e := range p.ConsoleErrors {
		select {
		case f.consoleCh <- e:
		default:
		}
	}
	return nil
}

func (f *Fake) Evaluate(_ context.Context, script string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.Contains(script, extract.ScriptMarker):
		return encodeInto(f.rawElements(), out)
	case strings.Contains(script, "__sitegraph_settle_install__"):
		return nil
	case strings.Contains(script, "__sitegraphMutated"):
		return encodeInto(true, out)
	default:
		return nil
	}
}

func (f *Fake) rawElements() []map[string]any {
	if f.current == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(f.current.Elements))
	for _, e := range f.current.Elements {
		out = append(out, map[string]any{
			"kind":      e.Kind,
			"text":      e.Text,
			"href":      e.Href,
			"ariaLabel": e.AriaLabel,
			"testId":    e.TestID,
			"cssPath":   e.CSSPath,
			"x":         e.X,
			"y":         e.Y,
			"w":         e.W,
			"h":         e.H,
		})
	}
	return out
}

func encodeInto(v any, out any) error {
	if out == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

var testIDSelector = regexp.MustCompile(`data-test(?:id|-id)="([^"]*)"|data-cy="([^"]*)"`)
var ariaLabelSelector = regexp.MustCompile(`\[aria-label="([^"]*)"\]`)

func (f *Fake) findByLocator(selector string) *Element {
	if f.current == nil {
		return nil
	}
	if m := ariaLabelSelector.FindStringSubmatch(selector); m != nil {
		for i := range f.current.Elements {
			if f.current.Elements[i].AriaLabel == m[1] {
				return &f.current.Elements[i]
			}
		}
		return nil
	}
	if m := testIDSelector.FindStringSubmatch(selector); m != nil {
		want := m[1]
		if want == "" {
			want = m[2]
		}
		for i := range f.current.Elements {
			if f.current.Elements[i].TestID == want {
				return &f.current.Elements[i]
			}
		}
		return nil
	}
	for i := range f.current.Elements {
		if f.current.Elements[i].CSSPath == selector {
			return &f.current.Elements[i]
		}
	}
	return nil
}

func (f *Fake) ClickSelector(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	el := f.findByLocator(selector)
	if el == nil {
		return fmt.Errorf("browsertest: no element for selector %q", selector)
	}
	return f.apply(el.Text)
}

func (f *Fake) ClickText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apply(text)
}

func (f *Fake) ClickAt(_ context.Context, x, y float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current == nil {
		return fmt.Errorf("browsertest: no current page")
	}
	for _, e := range f.current.Elements {
		cx, cy := e.X+e.W/2, e.Y+e.H/2
		if math.Abs(cx-x) < 1 && math.Abs(cy-y) < 1 {
			return f.apply(e.Text)
		}
	}
	return fmt.Errorf("browsertest: no element at (%.0f, %.0f)", x, y)
}

// apply executes the registered Outcome for the element with the given
// trigger text. Caller must hold f.mu.
func (f *Fake) apply(text string) error {
	if f.current == nil || f.current.Outcomes == nil {
		return fmt.Errorf("browsertest: no outcome registered for %q", text)
	}
	outcome, ok := f.current.Outcomes[text]
	if !ok {
		return fmt.Errorf("browsertest: no outcome registered for %q", text)
	}
	if outcome.NavigateTo != "" {
		target, ok := f.pages[outcome.NavigateTo]
		if !ok {
			return fmt.Errorf("browsertest: click navigates to unscripted page %q", outcome.NavigateTo)
		}
		f.current = target
		return nil
	}
	if outcome.MutateTo != nil {
		f.current.HTML = outcome.MutateTo.HTML
		f.current.Title = outcome.MutateTo.Title
		f.current.Elements = outcome.MutateTo.Elements
		f.current.Outcomes = outcome.MutateTo.Outcomes
		return nil
	}
	return nil
}

func (f *Fake) Screenshot(context.Context) ([]byte, error) {
	return []byte("fake-png"), nil
}

func (f *Fake) Title(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return "", nil
	}
	return f.current.Title, nil
}

func (f *Fake) URL(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return "", fmt.Errorf("browsertest: no current page")
	}
	return f.current.URL, nil
}

func (f *Fake) OuterHTML(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return "", nil
	}
	return f.current.HTML, nil
}

func (f *Fake) Fill(context.Context, string, string) error {
	return nil
}

func (f *Fake) WaitForSelector(context.Context, string, time.Duration) error {
	return nil
}

func (f *Fake) ConsoleErrors() <-chan string {
	return f.consoleCh
}

func (f *Fake) Close() error {
	return nil
}
