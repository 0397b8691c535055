package storage_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomasbasham/sitegraph/internal/storage"
)

func TestLocalUploaderWritesGraphAndScreenshotArtefacts(t *testing.T) {
	dir := t.TempDir()
	uploader, err := storage.NewLocalUploader(dir)
	if err != nil {
		t.Fatalf("NewLocalUploader: %v", err)
	}

	graph, err := uploader.Upload(context.Background(), &storage.UploadRequest{
		ObjectName:  "site-graphs/example-app-latest.json",
		Content:     bytes.NewReader([]byte(`{"id":"run-1"}`)),
		ContentType: "application/json",
	})
	if err != nil {
		t.Fatalf("Upload graph: %v", err)
	}
	if !strings.HasPrefix(graph.SignedURL, "file://") {
		t.Errorf("expected graph SignedURL to be a file:// URL, got %q", graph.SignedURL)
	}
	if !graph.ExpiresAt.IsZero() {
		t.Errorf("expected local artefacts to never expire, got %v", graph.ExpiresAt)
	}

	screenshot, err := uploader.Upload(context.Background(), &storage.UploadRequest{
		ObjectName:  "graph-screenshots/graph-n1.png",
		Content:     bytes.NewReader([]byte("fake-png")),
		ContentType: "image/png",
	})
	if err != nil {
		t.Fatalf("Upload screenshot: %v", err)
	}

	graphPath := filepath.Join(dir, "site-graphs", "example-app-latest.json")
	if data, err := os.ReadFile(graphPath); err != nil {
		t.Errorf("expected graph file at %q: %v", graphPath, err)
	} else if string(data) != `{"id":"run-1"}` {
		t.Errorf("graph file contents = %q", data)
	}

	screenshotPath := filepath.Join(dir, "graph-screenshots", "graph-n1.png")
	if data, err := os.ReadFile(screenshotPath); err != nil {
		t.Errorf("expected screenshot file at %q: %v", screenshotPath, err)
	} else if string(data) != "fake-png" {
		t.Errorf("screenshot file contents = %q", data)
	}

	if screenshot.ObjectName != "graph-screenshots/graph-n1.png" {
		t.Errorf("ObjectName round-trip = %q", screenshot.ObjectName)
	}
}

func TestNewLocalUploaderCreatesMissingBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist-yet")
	if _, err := storage.NewLocalUploader(dir); err != nil {
		t.Fatalf("NewLocalUploader: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected base dir %q to exist and be a directory", dir)
	}
}
