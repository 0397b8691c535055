// Package dispatch attempts to activate an element using an ordered list of
// locator strategies, succeeding as soon as one works.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomasbasham/sitegraph/internal/browser"
	"github.com/tomasbasham/sitegraph/internal/graph"
)

// StrategyTimeout bounds each individual locator strategy attempt.
const StrategyTimeout = 3 * time.Second

// errNoLocator indicates a strategy has nothing to work with (e.g. no
// test-id on this descriptor) and should be skipped without counting as a
// genuine click failure.
var errNoLocator = errors.New("dispatch: locator not available on descriptor")

// Descriptor is the minimal set of locators needed to find and click an
// element: a CSS path, exact visible text, a test-id attribute value, an
// aria-label, and a bounding-box center for the synthetic pointer fallback.
type Descriptor struct {
	CSSPath   string
	Text      string
	TestID    string
	AriaLabel string
	X, Y      float64
}

// FromElement builds a Descriptor from a previously extracted Element.
func FromElement(e graph.Element) Descriptor {
	return Descriptor{
		CSSPath:   e.CSSPath,
		Text:      e.Text,
		TestID:    e.TestID,
		AriaLabel: e.AriaLabel,
		X:         e.BBox.X + e.BBox.W/2,
		Y:         e.BBox.Y + e.BBox.H/2,
	}
}

type strategy func(ctx context.Context, br browser.Browser, d Descriptor) error

// strategies is the full ordered list: CSS path, test-id, exact text,
// aria-label, synthetic pointer event.
var strategies = []strategy{byCSSPath, byTestID, byExactText, byAriaLabel, byPointer}

// replayStrategies restricts to the first 3: CSS path, test-id, exact text.
// Used for deterministic click-path replay, where only locators stable
// across a fresh navigation are trustworthy.
var replayStrategies = strategies[:3]

// Click attempts all 5 strategies in order, short-circuiting on the first
// success. It never returns an error — only whether any strategy worked.
func Click(ctx context.Context, br browser.Browser, d Descriptor) bool {
	return attempt(ctx, br, d, strategies)
}

// ClickReplay attempts only the first 3 strategies, for replaying a
// click-path descriptor against a freshly navigated page.
func ClickReplay(ctx context.Context, br browser.Browser, d Descriptor) bool {
	return attempt(ctx, br, d, replayStrategies)
}

func attempt(ctx context.Context, br browser.Browser, d Descriptor, strats []strategy) bool {
	for _, s := range strats {
		sctx, cancel := context.WithTimeout(ctx, StrategyTimeout)
		err := s(sctx, br, d)
		cancel()
		if err == nil {
			return true
		}
	}
	return false
}

func byCSSPath(ctx context.Context, br browser.Browser, d Descriptor) error {
	if d.CSSPath == "" {
		return errNoLocator
	}
	return br.ClickSelector(ctx, d.CSSPath)
}

func byTestID(ctx context.Context, br browser.Browser, d Descriptor) error {
	if d.TestID == "" {
		return errNoLocator
	}
	selector := fmt.Sprintf(`[data-testid=%q],[data-test-id=%q],[data-cy=%q]`, d.TestID, d.TestID, d.TestID)
	return br.ClickSelector(ctx, selector)
}

func byExactText(ctx context.Context, br browser.Browser, d Descriptor) error {
	if d.Text == "" {
		return errNoLocator
	}
	return br.ClickText(ctx, d.Text)
}

func byAriaLabel(ctx context.Context, br browser.Browser, d Descriptor) error {
	if d.AriaLabel == "" {
		return errNoLocator
	}
	return br.ClickSelector(ctx, fmt.Sprintf(`[aria-label=%q]`, d.AriaLabel))
}

func byPointer(ctx context.Context, br browser.Browser, d Descriptor) error {
	if d.X == 0 && d.Y == 0 {
		return errNoLocator
	}
	return br.ClickAt(ctx, d.X, d.Y)
}
