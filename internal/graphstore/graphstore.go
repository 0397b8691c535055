// Package graphstore wraps a graph.Graph with JSON persistence through the
// storage.Uploader abstraction, writing both a stable "latest" artefact and
// a timestamped snapshot per run.
package graphstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tomasbasham/sitegraph/internal/graph"
	"github.com/tomasbasham/sitegraph/internal/storage"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and replaces runs of non-alphanumeric characters
// with a single hyphen, trimming leading/trailing hyphens. Used to derive a
// filesystem- and URL-safe identifier from an app name or entry host.
func Slugify(name string) string {
	lower := strings.ToLower(name)
	slug := slugPattern.ReplaceAllString(lower, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "site"
	}
	return slug
}

// Store pairs an in-memory Graph with an Uploader for persistence.
type Store struct {
	Graph    *graph.Graph
	uploader storage.Uploader
	slug     string
}

// New creates a Store for the given slug, backed by uploader. The slug
// identifies the crawled site and is used to name persisted artefacts. id and
// entryPoints are forwarded to graph.New to seed the underlying Graph.
func New(id, appName, slug string, entryPoints []string, uploader storage.Uploader) *Store {
	return &Store{
		Graph:    graph.New(id, appName, entryPoints),
		uploader: uploader,
		slug:     Slugify(slug),
	}
}

// AddNode idempotently inserts a node into the underlying Graph.
func (s *Store) AddNode(n *graph.Node) (*graph.Node, bool) {
	return s.Graph.AddNode(n)
}

// AddEdge idempotently inserts an edge into the underlying Graph.
func (s *Store) AddEdge(e graph.Edge) {
	s.Graph.AddEdge(e)
}

// sitegraphsDir and screenshotsDir are sibling directories under an
// Uploader's base directory, matching the persisted layout: graph documents
// under site-graphs/, node screenshots under graph-screenshots/.
const (
	sitegraphsDir  = "site-graphs"
	screenshotsDir = "graph-screenshots"
)

// Persist writes the current graph as pretty-printed JSON to two objects
// under sitegraphsDir:
// "{slug}-latest.json", which is always overwritten, and
// "{slug}-{timestamp}.json", a point-in-time snapshot. timestamp is
// caller-supplied (typically a run start time formatted as RFC3339 or
// similar) so that callers remain in control of time sourcing and results
// stay deterministic under test.
func (s *Store) Persist(ctx context.Context, timestamp string) (latest, snapshot *storage.UploadResult, err error) {
	data, err := json.MarshalIndent(s.Graph, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("graphstore: failed to marshal graph: %w", err)
	}

	latest, err = s.uploader.Upload(ctx, &storage.UploadRequest{
		ObjectName:  fmt.Sprintf("%s/%s-latest.json", sitegraphsDir, s.slug),
		Content:     bytes.NewReader(data),
		ContentType: "application/json",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("graphstore: failed to upload latest snapshot: %w", err)
	}

	snapshot, err = s.uploader.Upload(ctx, &storage.UploadRequest{
		ObjectName:  fmt.Sprintf("%s/%s-%s.json", sitegraphsDir, s.slug, timestamp),
		Content:     bytes.NewReader(data),
		ContentType: "application/json",
	})
	if err != nil {
		return latest, nil, fmt.Errorf("graphstore: failed to upload timestamped snapshot: %w", err)
	}

	return latest, snapshot, nil
}

// SaveScreenshot persists a node's PNG capture under screenshotsDir, named
// by the filename previously recorded on the node (e.g. "graph-{id}.png").
func (s *Store) SaveScreenshot(ctx context.Context, filename string, png []byte) error {
	_, err := s.uploader.Upload(ctx, &storage.UploadRequest{
		ObjectName:  fmt.Sprintf("%s/%s", screenshotsDir, filename),
		Content:     bytes.NewReader(png),
		ContentType: "image/png",
	})
	if err != nil {
		return fmt.Errorf("graphstore: failed to upload screenshot %q: %w", filename, err)
	}
	return nil
}
