package explorer

import (
	"context"
	"time"

	"github.com/tomasbasham/sitegraph/internal/dispatch"
	"github.com/tomasbasham/sitegraph/internal/events"
	"github.com/tomasbasham/sitegraph/internal/extract"
	"github.com/tomasbasham/sitegraph/internal/fingerprint"
	"github.com/tomasbasham/sitegraph/internal/graph"
	"github.com/tomasbasham/sitegraph/internal/settle"
)

// replayPostClickSettle is the inter-replay-step delay, shorter than the
// top-level Phase 2 settle since replay already races against a hard depth
// limit.
const replayPostClickSettle = 500 * time.Millisecond

// replayChildren discovers grandchildren of an SPA state by navigating back
// to baseURL, replaying the click path that reaches parent, then attempting
// each further clickable candidate — since the parent's own Phase 2 loop
// requires a clean starting state that only a fresh navigation can provide.
// Implements §4.10 Replay Recursion.
func (e *Explorer) replayChildren(ctx context.Context, baseURL string, parent *graph.Node, path []dispatch.Descriptor, spaDepth int) {
	candidates := clickableCandidates(parent.Elements)

	limit := spaDepth1Candidates
	if spaDepth >= 2 {
		limit = spaDepth2Candidates
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}
	candidates = candidates[:limit]

	for i := range candidates {
		if time.Now().After(e.deadline) {
			return
		}
		el := candidates[i]

		if !e.replayTo(ctx, baseURL, path) {
			continue
		}

		desc := dispatch.FromElement(el)
		if !dispatch.ClickReplay(ctx, e.br, desc) {
			continue
		}
		time.Sleep(replayPostClickSettle)
		settle.Settle(ctx, e.br, e.cfg.GraceWindow())

		e.handleReplayPostClick(ctx, parent, el, path, spaDepth)
	}
}

// replayTo navigates to baseURL and replays each descriptor in path using
// the Replay Dispatcher variant, abandoning the candidate on any failed
// step.
func (e *Explorer) replayTo(ctx context.Context, baseURL string, path []dispatch.Descriptor) bool {
	if err := e.br.Goto(ctx, baseURL); err != nil {
		return false
	}
	settle.Settle(ctx, e.br, e.cfg.GraceWindow())

	for _, step := range path {
		if !dispatch.ClickReplay(ctx, e.br, step) {
			return false
		}
		time.Sleep(replayPostClickSettle)
		settle.Settle(ctx, e.br, e.cfg.GraceWindow())
	}
	return true
}

// handleReplayPostClick classifies the outcome of a replayed click
// identically to Phase 2's handlePostClick, registering a new SPA state and
// recursing further if one is found and the depth limit allows it.
func (e *Explorer) handleReplayPostClick(ctx context.Context, parent *graph.Node, el graph.Element, path []dispatch.Descriptor, spaDepth int) {
	actualURL, err := e.br.URL(ctx)
	if err != nil {
		return
	}
	norm := normalize(actualURL)

	if norm != parent.NormalizedURL {
		e.sink.Emit(events.NavigationDetected, actualURL)
		if !e.urlVisited[norm] && e.policy.InScope(actualURL) {
			e.queue = append(e.queue, workItem{
				URL:               actualURL,
				Depth:             parent.Depth + 1,
				SourceNodeID:      parent.ID,
				SourceElementID:   el.ID,
				SourceElementText: el.Text,
				SourceElementKind: el.Kind,
			})
		}
		return
	}

	html, err := e.br.OuterHTML(ctx)
	if err != nil {
		return
	}
	fp := fingerprint.Fingerprint(html)
	if fp == parent.Fingerprint {
		return
	}
	key := stateKey(norm, fp)
	if e.stateVisited[key] {
		return
	}

	e.sink.Emit(events.SPAStateFound, el.Text)
	e.stateVisited[key] = true

	childElements, err := extract.Extract(ctx, e.br, e.cfg.MaxElementsPerPage)
	if err != nil {
		childElements = nil
	}

	spaNode := &graph.Node{
		ID:            graph.NodeID(norm, fp),
		URL:           actualURL,
		NormalizedURL: norm,
		Title:         el.Text,
		Elements:      childElements,
		Fingerprint:   fp,
		Depth:         parent.Depth + 1,
		Timestamp:     time.Now(),
	}
	if img, err := e.br.Screenshot(ctx); err == nil && len(img) > 0 {
		filename := "graph-" + spaNode.ID + ".png"
		if err := e.store.SaveScreenshot(ctx, filename, img); err == nil {
			spaNode.Screenshot = filename
		}
	}

	stored, _ := e.store.AddNode(spaNode)
	e.store.AddEdge(graph.Edge{
		SourceID:    parent.ID,
		TargetID:    stored.ID,
		ElementID:   el.ID,
		ElementText: el.Text,
		ElementKind: el.Kind,
		Interaction: graph.InteractionClick,
		Verified:    true,
	})

	nextPath := append(append([]dispatch.Descriptor{}, path...), dispatch.FromElement(el))
	if spaDepth+1 < maxSPADepth {
		e.replayChildren(ctx, parent.URL, stored, nextPath, spaDepth+1)
	}
}
