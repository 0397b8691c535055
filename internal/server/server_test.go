package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomasbasham/sitegraph/internal/browser"
	"github.com/tomasbasham/sitegraph/internal/browsertest"
	"github.com/tomasbasham/sitegraph/internal/config"
	"github.com/tomasbasham/sitegraph/internal/report"
	"github.com/tomasbasham/sitegraph/internal/server"
	"github.com/tomasbasham/sitegraph/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *report.Registry) {
	t.Helper()

	uploader, err := storage.NewLocalUploader(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	registry := report.NewRegistry()

	home := &browsertest.Page{
		URL:  "https://ex.test/",
		HTML: `<html><body><main><div>Home</div></main></body></html>`,
	}

	newBrowser := func(_ context.Context, _ bool) (browser.Browser, error) {
		return browsertest.New(home), nil
	}

	srv := server.New(registry, uploader, newBrowser, config.Default(), nil)
	return httptest.NewServer(srv.Handler()), registry
}

func TestCreateDiscoveryRejectsEmptyEntryPoints(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/discoveries", "application/json", jsonBody(t, map[string]any{"appName": "demo"}))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing entryPoints, got %d", resp.StatusCode)
	}
}

func TestCreateAndPollDiscovery(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/discoveries", "application/json", jsonBody(t, map[string]any{
		"appName":     "demo",
		"entryPoints": []string{"https://ex.test/"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 Accepted, got %d", resp.StatusCode)
	}

	var created struct {
		RunID  string `json:"runId"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.RunID == "" {
		t.Fatal("expected a non-empty runId")
	}

	var run report.Run
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		pollResp, err := http.Get(ts.URL + "/discoveries/" + created.RunID)
		if err != nil {
			t.Fatal(err)
		}
		err = json.NewDecoder(pollResp.Body).Decode(&run)
		pollResp.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if run.Report != nil || run.Error != "" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if run.Report == nil {
		t.Fatalf("expected run to complete with a report, got %+v", run)
	}
	if run.Report.NodesDiscovered != 1 {
		t.Errorf("expected 1 node discovered, got %d", run.Report.NodesDiscovered)
	}
}

func TestGetDiscoveryUnknownIDReturns404(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/discoveries/does-not-exist")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown run id, got %d", resp.StatusCode)
	}
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(data)
}
