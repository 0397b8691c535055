// Package extract pulls a bounded, deduplicated list of interactive
// elements from the live DOM. The heavy lifting (visibility gates, CSS path
// computation, candidate selector families) runs inside the browser's
// scripting environment; this package applies the Danger Filter, the
// long-text rule, position-based dedup, and the per-page cap on the
// returned candidates.
package extract

import (
	"context"
	_ "embed"
	"math"

	"github.com/tomasbasham/sitegraph/internal/browser"
	"github.com/tomasbasham/sitegraph/internal/graph"
	"github.com/tomasbasham/sitegraph/internal/policy"
)

//go:embed extract.js
var script string

// ScriptMarker is the literal substring extract.js begins with; the test
// fake in internal/browsertest matches on it to recognize calls to this
// script without running a JS engine of its own.
const ScriptMarker = "/*__sitegraph_extract__*/"

// rawElement mirrors the JSON shape emitted by extract.js, before the
// Danger Filter, dedup and cap are applied.
type rawElement struct {
	Kind      string  `json:"kind"`
	Text      string  `json:"text"`
	Href      string  `json:"href"`
	AriaLabel string  `json:"ariaLabel"`
	TestID    string  `json:"testId"`
	CSSPath   string  `json:"cssPath"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	W         float64 `json:"w"`
	H         float64 `json:"h"`
}

type dedupKey struct {
	text string
	x, y float64
}

// Extract returns up to maxElements interactive elements from the current
// page, in the order the in-page script discovered them.
func Extract(ctx context.Context, br browser.Browser, maxElements int) ([]graph.Element, error) {
	var raw []rawElement
	if err := br.Evaluate(ctx, script, &raw); err != nil {
		return nil, err
	}

	seen := make(map[dedupKey]struct{}, len(raw))
	out := make([]graph.Element, 0, maxElements)

	for i, r := range raw {
		if len(out) >= maxElements {
			break
		}

		kind := graph.ElementKind(r.Kind)
		if kind != graph.KindLink && len(r.Text) > 80 {
			continue
		}
		if !policy.Allowed(r.Text, r.Href) {
			continue
		}

		key := dedupKey{r.Text, math.Round(r.X), math.Round(r.Y)}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		locator := r.CSSPath
		if locator == "" {
			locator = r.TestID
		}

		out = append(out, graph.Element{
			ID:        graph.ElementID(locator, r.Text, i),
			Kind:      kind,
			Text:      r.Text,
			Href:      r.Href,
			AriaLabel: r.AriaLabel,
			TestID:    r.TestID,
			CSSPath:   r.CSSPath,
			BBox:      graph.BoundingBox{X: r.X, Y: r.Y, W: r.W, H: r.H},
		})
	}

	return out, nil
}
