// Package explorer implements the graph-discovery engine: a bounded
// breadth-first explorer that combines URL navigation, same-URL SPA state
// detection via DOM structural hashing, and replay-based exploration of
// nested SPA states.
package explorer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tomasbasham/sitegraph/internal/browser"
	"github.com/tomasbasham/sitegraph/internal/config"
	"github.com/tomasbasham/sitegraph/internal/dispatch"
	"github.com/tomasbasham/sitegraph/internal/events"
	"github.com/tomasbasham/sitegraph/internal/extract"
	"github.com/tomasbasham/sitegraph/internal/fingerprint"
	"github.com/tomasbasham/sitegraph/internal/graph"
	"github.com/tomasbasham/sitegraph/internal/graphstore"
	"github.com/tomasbasham/sitegraph/internal/login"
	"github.com/tomasbasham/sitegraph/internal/policy"
	"github.com/tomasbasham/sitegraph/internal/report"
	"github.com/tomasbasham/sitegraph/internal/settle"
	"github.com/tomasbasham/sitegraph/internal/urlnorm"
)

// phase2MaxCandidates, spaDepth1Candidates and spaDepth2Candidates govern how
// many clickable children are tried at each level, per §4.10.
const (
	phase2MaxCandidates = 15
	spaDepth1Candidates = 10
	spaDepth2Candidates = 5
	maxSPADepth         = 3

	postNavigateSettle = 1 * time.Second
	postClickSettle    = 1 * time.Second
)

// workItem is one entry in the FIFO queue: a URL to visit, its BFS depth, and
// — if it was discovered through a link on a previously visited page — the
// source node and element that produced it.
type workItem struct {
	URL               string
	Depth             int
	SourceNodeID      string
	SourceElementID   string
	SourceElementText string
	SourceElementKind graph.ElementKind
}

// Explorer runs a single discovery pass against one browser.Browser and
// produces one Report. It is single-use: a new Explorer must be constructed
// per run.
type Explorer struct {
	cfg    config.Config
	br     browser.Browser
	store  *graphstore.Store
	policy *policy.DomainPolicy
	sink   events.Sink
	log    *logrus.Entry

	queue []workItem

	urlVisited   map[string]bool
	stateVisited map[string]bool

	start      time.Time
	deadline   time.Time
	errors     []string
	appTypeSet bool
}

// New constructs an Explorer. entryPoints must be non-empty; the first entry
// is used to seed the Domain Policy's base host.
func New(cfg config.Config, br browser.Browser, store *graphstore.Store, sink events.Sink, log *logrus.Logger) *Explorer {
	if sink == nil {
		sink = events.Null{}
	}
	if log == nil {
		log = logrus.New()
	}

	base := ""
	if len(cfg.EntryPoints) > 0 {
		base = cfg.EntryPoints[0]
	}

	return &Explorer{
		cfg:          cfg,
		br:           br,
		store:        store,
		policy:       policy.NewDomainPolicy(base, cfg.DomainWhitelist),
		sink:         sink,
		log:          log.WithField("component", "explorer"),
		urlVisited:   make(map[string]bool),
		stateVisited: make(map[string]bool),
	}
}

// Run executes the full discovery pass: optional login, BFS exploration
// under budget, persistence, and report assembly. The returned error is
// always nil: per-item failures, a timeout and a failed persist are all
// reported through the Report's Status and Errors. Acquiring the browser
// happens before New and is the caller's concern.
func (e *Explorer) Run(ctx context.Context) (*report.Report, error) {
	e.start = time.Now()
	e.deadline = e.start.Add(e.cfg.Timeout())
	e.sink.Emit(events.DiscoveryStart, map[string]any{"appName": e.cfg.AppName, "entryPoints": e.cfg.EntryPoints})

	e.seed()

	if e.cfg.LoginCredentials != nil {
		e.runLogin(ctx)
	}

	status := e.loop(ctx)

	rep := e.finish(ctx, status)
	return rep, nil
}

// seed enqueues each entry point at depth 0, per §4.10 Seed.
func (e *Explorer) seed() {
	for _, ep := range e.cfg.EntryPoints {
		e.queue = append(e.queue, workItem{URL: ep, Depth: 0})
	}
}

// runLogin performs the one-shot credentialed sign-in and, if it rewrote the
// entry URL, updates the seeded queue and visited set so post-login
// redirects do not cause a revisit cycle.
func (e *Explorer) runLogin(ctx context.Context) {
	entry := e.cfg.EntryPoints[0]
	res := login.Run(ctx, e.br, entry, *e.cfg.LoginCredentials, e.sink)
	if res.RewrittenURL == "" {
		return
	}

	e.urlVisited[normalize(entry)] = true
	for i := range e.queue {
		if e.queue[i].URL == entry {
			e.queue[i].URL = res.RewrittenURL
		}
	}
}

// loop runs the main BFS over the work queue per §4.10 steps 1-9, and
// returns the terminal report status.
func (e *Explorer) loop(ctx context.Context) report.Status {
	status := report.StatusSuccess

	for len(e.queue) > 0 {
		if e.store.Graph.NodeCount() >= e.cfg.MaxNodes {
			break
		}
		if time.Now().After(e.deadline) {
			e.sink.Emit(events.DiscoveryTimeout, nil)
			status = report.StatusPartial
			break
		}

		item := e.queue[0]
		e.queue = e.queue[1:]

		norm := normalize(item.URL)

		if e.urlVisited[norm] {
			if item.SourceNodeID != "" {
				e.closeRediscovery(norm, item)
			}
			continue
		}

		if item.Depth > e.cfg.MaxDepth {
			continue
		}
		if !e.policy.InScope(item.URL) {
			e.sink.Emit(events.SkipExternal, item.URL)
			continue
		}

		e.urlVisited[norm] = true

		node, visitErr := e.visit(ctx, item)
		if visitErr != nil {
			e.errors = append(e.errors, visitErr.Error())
			status = report.StatusPartial
			continue
		}

		if item.Depth < e.cfg.MaxDepth {
			e.queueChildren(ctx, node, item.Depth)
		}
	}

	return status
}

// closeRediscovery records an edge into a node that already exists for norm,
// without revisiting the page, per §4.10 step 2.
func (e *Explorer) closeRediscovery(norm string, item workItem) {
	for _, n := range e.store.Graph.Nodes {
		if n.NormalizedURL == norm {
			e.store.AddEdge(graph.Edge{
				SourceID:    item.SourceNodeID,
				TargetID:    n.ID,
				ElementID:   item.SourceElementID,
				ElementText: item.SourceElementText,
				ElementKind: item.SourceElementKind,
				Interaction: graph.InteractionNavigate,
				Verified:    true,
			})
			return
		}
	}
}

// visit navigates to item's URL, settles the page, fingerprints and extracts
// it, and inserts a new Node into the store. It implements §4.10 steps 5-8.
func (e *Explorer) visit(ctx context.Context, item workItem) (*graph.Node, error) {
	e.log.WithField("url", item.URL).WithField("depth", item.Depth).Debug("visiting")
	e.sink.Emit(events.Visiting, item.URL)
	visitStart := time.Now()

	if err := e.br.Goto(ctx, item.URL); err != nil {
		e.log.WithError(err).WithField("url", item.URL).Warn("navigation failed")
		e.sink.Emit(events.VisitError, err.Error())
		return nil, fmt.Errorf("explorer: failed to navigate to %q: %w", item.URL, err)
	}

	settle.Settle(ctx, e.br, e.cfg.GraceWindow())
	time.Sleep(postNavigateSettle)

	html, err := e.br.OuterHTML(ctx)
	if err != nil {
		html = ""
	}

	if !e.appTypeSet {
		e.detectAppType(html)
		e.appTypeSet = true
	}

	fp := fingerprint.Fingerprint(html)

	title, _ := e.br.Title(ctx)
	actualURL, err := e.br.URL(ctx)
	if err != nil {
		actualURL = item.URL
	}
	norm := normalize(actualURL)

	elements, err := extract.Extract(ctx, e.br, e.cfg.MaxElementsPerPage)
	if err != nil {
		elements = nil
	}

	consoleErrors := drainConsole(e.br)

	node := &graph.Node{
		ID:            graph.NodeID(norm, fp),
		URL:           actualURL,
		NormalizedURL: norm,
		Title:         title,
		IsEntryPoint:  item.Depth == 0,
		Elements:      elements,
		ConsoleErrors: consoleErrors,
		LoadTimeMs:    time.Since(visitStart).Milliseconds(),
		Fingerprint:   fp,
		Depth:         item.Depth,
		Timestamp:     time.Now(),
	}

	if img, err := e.br.Screenshot(ctx); err == nil && len(img) > 0 {
		filename := fmt.Sprintf("graph-%s.png", node.ID)
		if err := e.store.SaveScreenshot(ctx, filename, img); err == nil {
			node.Screenshot = filename
		}
	}

	stored, inserted := e.store.AddNode(node)
	if inserted {
		e.sink.Emit(events.NodeCreated, stored.ID)
	}
	e.stateVisited[stateKey(norm, fp)] = true

	if item.SourceNodeID != "" {
		e.store.AddEdge(graph.Edge{
			SourceID:    item.SourceNodeID,
			TargetID:    stored.ID,
			ElementID:   item.SourceElementID,
			ElementText: item.SourceElementText,
			ElementKind: item.SourceElementKind,
			Interaction: graph.InteractionNavigate,
			Verified:    true,
		})
	}

	return stored, nil
}

// queueChildren runs Phase 1 (URL-typed children) then Phase 2 (clickable
// children), per §4.10.
func (e *Explorer) queueChildren(ctx context.Context, node *graph.Node, depth int) {
	e.phase1(node, depth)
	e.phase2(ctx, node, depth)
}

// phase1 enqueues href-bearing link elements whose target is in-scope and
// not yet URL-visited. No click is performed.
func (e *Explorer) phase1(node *graph.Node, depth int) {
	for i := range node.Elements {
		el := &node.Elements[i]
		if el.Kind != graph.KindLink || el.Href == "" {
			continue
		}
		norm := normalize(el.Href)
		if e.urlVisited[norm] || !e.policy.InScope(el.Href) {
			continue
		}
		e.queue = append(e.queue, workItem{
			URL:               el.Href,
			Depth:             depth + 1,
			SourceNodeID:      node.ID,
			SourceElementID:   el.ID,
			SourceElementText: el.Text,
			SourceElementKind: el.Kind,
		})
	}
}

// phase2 attempts clicks on clickable elements, discovering both
// cross-page navigation and same-page SPA state transitions.
func (e *Explorer) phase2(ctx context.Context, node *graph.Node, depth int) {
	candidates := clickableCandidates(node.Elements)
	limit := phase2MaxCandidates
	if remaining := e.cfg.MaxNodes - e.store.Graph.NodeCount(); remaining < limit {
		limit = remaining
	}
	if limit < 0 {
		limit = 0
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

		if err := e.br.Goto(ctx, node.URL); err != nil {
			continue
		}
		settle.Settle(ctx, e.br, e.cfg.GraceWindow())

		desc := dispatch.FromElement(el)
		if !dispatch.Click(ctx, e.br, desc) {
			continue
		}
		time.Sleep(postClickSettle)
		settle.Settle(ctx, e.br, e.cfg.GraceWindow())

		e.handlePostClick(ctx, node, el, depth, []dispatch.Descriptor{desc}, 1)
	}
}

// handlePostClick classifies the outcome of a click (Case A: URL changed,
// Case B: DOM changed) and either enqueues a new work item or recurses into
// a virtual SPA state, per §4.10 Phase 2 and the Replay Recursion procedure.
func (e *Explorer) handlePostClick(ctx context.Context, parent *graph.Node, el graph.Element, depth int, path []dispatch.Descriptor, spaDepth int) {
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
				Depth:             depth + 1,
				SourceNodeID:      parent.ID,
				SourceElementID:   el.ID,
				SourceElementText: el.Text,
				SourceElementKind: el.Kind,
			})
		}
		return
	}

	// Case B: URL unchanged — check for a DOM-structural transition.
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
		Depth:         depth + 1,
		Timestamp:     time.Now(),
	}
	if img, err := e.br.Screenshot(ctx); err == nil && len(img) > 0 {
		filename := fmt.Sprintf("graph-%s.png", spaNode.ID)
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

	if spaDepth < maxSPADepth {
		e.replayChildren(ctx, parent.URL, stored, path, spaDepth)
	}
}

// clickableCandidates filters node elements to the clickable kinds and sorts
// them by kind priority (tab > nav-item > button > other).
func clickableCandidates(elements []graph.Element) []graph.Element {
	var out []graph.Element
	for _, el := range elements {
		if el.Kind.Clickable() {
			out = append(out, el)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return graph.KindPriority(out[i].Kind) < graph.KindPriority(out[j].Kind)
	})
	return out
}

func normalize(raw string) string {
	return urlnorm.Normalize(raw)
}

func stateKey(normURL, fingerprint string) string {
	return normURL + "#" + fingerprint
}

func drainConsole(br browser.Browser) []string {
	var out []string
	ch := br.ConsoleErrors()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}
