// Package graph defines the site graph data model: Elements, Nodes, Edges and
// the Graph that holds them. Node identity is a pure function of normalized
// URL and DOM fingerprint; the rest of the engine never mints ids any other
// way.
package graph

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// SchemaVersion identifies the persisted JSON shape. Bump when the shape of
// Graph, Node, Edge or Element changes in a way that breaks old readers.
const SchemaVersion = 1

// ElementKind is a closed enumeration. The rest of the engine treats kinds
// polymorphically through a small capability set: does the kind carry an
// href to be followed (Link), should it be clicked (Button, Tab, NavItem,
// Other), or should it be ignored in exploration (Input, Dropdown).
type ElementKind string

const (
	KindLink     ElementKind = "link"
	KindButton   ElementKind = "button"
	KindTab      ElementKind = "tab"
	KindNavItem  ElementKind = "nav-item"
	KindDropdown ElementKind = "dropdown"
	KindInput    ElementKind = "input"
	KindOther    ElementKind = "other"
)

// Clickable reports whether an element of this kind is a candidate for the
// Click Dispatcher during Phase 2 child queuing.
func (k ElementKind) Clickable() bool {
	switch k {
	case KindTab, KindNavItem, KindButton, KindOther:
		return true
	default:
		return false
	}
}

// kindPriority orders clickable kinds for Phase 2: tab > nav-item > button > other.
var kindPriority = map[ElementKind]int{
	KindTab:     0,
	KindNavItem: 1,
	KindButton:  2,
	KindOther:   3,
}

// KindPriority returns the Phase 2 sort weight for k; unranked kinds sort last.
func KindPriority(k ElementKind) int {
	if p, ok := kindPriority[k]; ok {
		return p
	}
	return len(kindPriority)
}

// BoundingBox is the element's on-screen rectangle at extraction time.
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Element is an interactive DOM element observed on some page.
type Element struct {
	ID       string      `json:"id"`
	Kind     ElementKind `json:"kind"`
	Text     string      `json:"text"`
	Href     string      `json:"href,omitempty"`
	AriaLabel string     `json:"ariaLabel,omitempty"`
	TestID   string      `json:"testId,omitempty"`
	CSSPath  string      `json:"cssPath,omitempty"`
	BBox     BoundingBox `json:"bbox"`

	// TargetNodeID holds the id of the state reached through this element.
	// The explorer does not set it; the transition is recorded only as an
	// Edge carrying this element's id, so the field is empty in graphs the
	// explorer produces.
	TargetNodeID string `json:"targetNodeId,omitempty"`
}

// ElementID derives the stable id of an element: an MD5-truncated-to-10-hex
// digest of (css_path || selector) + "-" + text + "-" + ordinal. selector is
// whichever locator is available when no CSS path was computed (e.g. a
// replay descriptor); callers pass cssPath when present, else some other
// selector string, never both.
func ElementID(cssPathOrSelector, text string, ordinal int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%s-%d", cssPathOrSelector, text, ordinal)))
	return hex.EncodeToString(sum[:])[:10]
}

// Node is a distinct UI state: a normalized URL paired with a DOM structural
// fingerprint. Nodes are created once and never mutated thereafter.
type Node struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	NormalizedURL string    `json:"normalizedUrl"`
	Title         string    `json:"title"`
	IsEntryPoint  bool      `json:"isEntryPoint"`
	Elements      []Element `json:"elements"`
	ConsoleErrors []string  `json:"consoleErrors,omitempty"`
	LoadTimeMs    int64     `json:"loadTimeMs"`
	HTTPStatus    int       `json:"httpStatus,omitempty"`
	Screenshot    string    `json:"screenshot,omitempty"`
	Fingerprint   string    `json:"fingerprint"`
	Depth         int       `json:"depth"`
	Timestamp     time.Time `json:"timestamp"`
}

// NodeID computes node identity per §3: a content hash of
// normalizedURL + "#" + domFingerprint. URL-only nodes (empty fingerprint)
// hash normalizedURL + "#". This asymmetry — URL-distinct nodes hash only
// the URL half conceptually even though the literal input still has a
// trailing "#" — must be preserved to match persisted files produced by
// prior runs (§9 Open Questions).
func NodeID(normalizedURL, fingerprint string) string {
	sum := md5.Sum([]byte(normalizedURL + "#" + fingerprint))
	return hex.EncodeToString(sum[:])
}

// InteractionKind distinguishes how an edge's transition was discovered.
type InteractionKind string

const (
	InteractionClick    InteractionKind = "click"
	InteractionNavigate InteractionKind = "navigate"
)

// Edge is a directed transition from a source Node to a target Node through
// a specific Element.
type Edge struct {
	SourceID    string          `json:"sourceId"`
	TargetID    string          `json:"targetId"`
	ElementID   string          `json:"elementId"`
	ElementText string          `json:"elementText"`
	ElementKind ElementKind     `json:"elementKind"`
	Interaction InteractionKind `json:"interactionType"`
	Verified    bool            `json:"verified"`
}

// key is the uniqueness triple for an edge: no two edges share
// (source, target, element).
func (e Edge) key() edgeKey {
	return edgeKey{e.SourceID, e.TargetID, e.ElementID}
}

type edgeKey struct {
	source, target, element string
}

// Metadata carries graph-level bookkeeping separate from the node/edge sets
// themselves, so a fresh Graph can be distinguished from one with content.
type Metadata struct {
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	DiscoveryMs      int64     `json:"discoveryMs"`
	TotalNodes       int       `json:"totalNodes"`
	TotalEdges       int       `json:"totalEdges"`
	TotalElements    int       `json:"totalElements"`
	MaxDepthReached  int       `json:"maxDepthReached"`
	DetectedAppType  string    `json:"detectedAppType,omitempty"`
}

// Graph is the named collection of nodes and edges produced by one
// discovery run.
type Graph struct {
	SchemaVersion int               `json:"schemaVersion"`
	ID            string            `json:"id"`
	AppName       string            `json:"appName"`
	AppType       string            `json:"appType,omitempty"`
	EntryPoints   []string          `json:"entryPoints"`
	Nodes         map[string]*Node  `json:"nodes"`
	Edges         []Edge            `json:"edges"`
	Metadata      Metadata          `json:"metadata"`
	LoginRequired bool              `json:"loginRequired"`

	edgeSet map[edgeKey]struct{}
}

// New creates an empty Graph ready for population by the Explorer Core.
func New(id, appName string, entryPoints []string) *Graph {
	now := time.Now()
	return &Graph{
		SchemaVersion: SchemaVersion,
		ID:            id,
		AppName:       appName,
		EntryPoints:   entryPoints,
		Nodes:         make(map[string]*Node),
		Edges:         nil,
		Metadata: Metadata{
			CreatedAt: now,
			UpdatedAt: now,
		},
		edgeSet: make(map[edgeKey]struct{}),
	}
}

// AddNode inserts a node if its id is not already present. Returns the
// stored node (existing or new) and whether it was newly inserted. Nodes are
// never mutated after insertion — a caller attempting to re-add an existing
// id gets back the original.
func (g *Graph) AddNode(n *Node) (*Node, bool) {
	if existing, ok := g.Nodes[n.ID]; ok {
		return existing, false
	}
	g.Nodes[n.ID] = n
	g.Metadata.TotalNodes = len(g.Nodes)
	g.Metadata.TotalElements += len(n.Elements)
	if n.Depth > g.Metadata.MaxDepthReached {
		g.Metadata.MaxDepthReached = n.Depth
	}
	g.touch()
	return n, true
}

// AddEdge is idempotent with respect to the (source, target, element)
// triple: a repeated call with the same triple is a no-op and reports false.
func (g *Graph) AddEdge(e Edge) bool {
	if g.edgeSet == nil {
		g.edgeSet = make(map[edgeKey]struct{})
	}
	k := e.key()
	if _, exists := g.edgeSet[k]; exists {
		return false
	}
	g.edgeSet[k] = struct{}{}
	g.Edges = append(g.Edges, e)
	g.Metadata.TotalEdges = len(g.Edges)
	g.touch()
	return true
}

func (g *Graph) touch() {
	g.Metadata.UpdatedAt = time.Now()
}

// NodeCount returns the number of distinct nodes currently stored.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// rebuildEdgeSet reconstructs the uniqueness index after deserialization,
// where the unexported edgeSet field is necessarily empty.
func (g *Graph) rebuildEdgeSet() {
	g.edgeSet = make(map[edgeKey]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		g.edgeSet[e.key()] = struct{}{}
	}
}
