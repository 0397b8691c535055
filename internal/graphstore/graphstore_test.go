package graphstore_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomasbasham/sitegraph/internal/graph"
	"github.com/tomasbasham/sitegraph/internal/graphstore"
	"github.com/tomasbasham/sitegraph/internal/storage"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Example App!":    "example-app",
		"www.Example.com": "www-example-com",
		"   ":             "site",
		"already-slug":     "already-slug",
	}
	for in, want := range cases {
		if got := graphstore.Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPersistWritesLatestAndSnapshot(t *testing.T) {
	dir := t.TempDir()
	uploader, err := storage.NewLocalUploader(dir)
	if err != nil {
		t.Fatal(err)
	}

	store := graphstore.New("run-1", "Example Site", "Example Site", []string{"https://example.test/"}, uploader)
	store.AddNode(&graph.Node{ID: "n1", URL: "https://example.test/", NormalizedURL: "https://example.test"})

	latest, snapshot, err := store.Persist(context.Background(), "20260729T000000Z")
	if err != nil {
		t.Fatal(err)
	}

	latestPath := filepath.Join(dir, "site-graphs", "example-site-latest.json")
	if _, err := os.Stat(latestPath); err != nil {
		t.Fatalf("expected latest snapshot file to exist: %v", err)
	}
	snapshotPath := filepath.Join(dir, "site-graphs", "example-site-20260729T000000Z.json")
	if _, err := os.Stat(snapshotPath); err != nil {
		t.Fatalf("expected timestamped snapshot file to exist: %v", err)
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		t.Fatal(err)
	}
	var g graph.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("expected valid graph JSON: %v", err)
	}
	if g.NodeCount() != 1 {
		t.Errorf("expected 1 node in persisted graph, got %d", g.NodeCount())
	}

	if latest.ObjectName == "" || snapshot.ObjectName == "" {
		t.Error("expected non-empty object names in upload results")
	}
}

func TestSaveScreenshotWritesUnderGraphScreenshotsDir(t *testing.T) {
	dir := t.TempDir()
	uploader, err := storage.NewLocalUploader(dir)
	if err != nil {
		t.Fatal(err)
	}

	store := graphstore.New("run-1", "Example Site", "Example Site", []string{"https://example.test/"}, uploader)
	if err := store.SaveScreenshot(context.Background(), "graph-n1.png", []byte("fake-png")); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "graph-screenshots", "graph-n1.png")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected screenshot file to exist: %v", err)
	}
	if string(data) != "fake-png" {
		t.Errorf("expected screenshot contents to round-trip, got %q", data)
	}
}
