// Package server provides the HTTP API for async site graph discovery runs.
//
// Endpoints:
//
//	POST /discoveries            — enqueue a new discovery run; returns run ID immediately
//	GET  /discoveries/{id}       — poll run status and retrieve the report once complete
//	GET  /discoveries/{id}/events — stream the run's event sink as Server-Sent Events
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/tomasbasham/sitegraph/internal/browser"
	"github.com/tomasbasham/sitegraph/internal/config"
	"github.com/tomasbasham/sitegraph/internal/events"
	"github.com/tomasbasham/sitegraph/internal/explorer"
	"github.com/tomasbasham/sitegraph/internal/graphstore"
	"github.com/tomasbasham/sitegraph/internal/login"
	"github.com/tomasbasham/sitegraph/internal/report"
	"github.com/tomasbasham/sitegraph/internal/storage"
)

// sseJSON encodes the per-event payloads written to the SSE stream. Plain
// events arrive one at a time from Broadcaster but a busy run can emit
// dozens per second across many connected subscribers, so the hot path uses
// jsoniter instead of encoding/json; request/response bodies elsewhere are
// infrequent enough that encoding/json is fine.
var sseJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// BrowserFactory acquires a fresh Browser instance for a single discovery
// run. Production wiring returns a chromedp-backed browser.NewChrome; tests
// substitute a browsertest.Fake constructor.
type BrowserFactory func(ctx context.Context, headless bool) (browser.Browser, error)

// Server holds the dependencies shared across HTTP handlers.
type Server struct {
	registry    *report.Registry
	uploader    storage.Uploader
	newBrowser  BrowserFactory
	defaultCfg  config.Config
	log         *logrus.Logger
	mux         *http.ServeMux

	broadcasters *runBroadcasters
}

// New creates a Server wired to the given registry, uploader and browser
// factory. defaultCfg supplies config values a request does not override.
func New(registry *report.Registry, uploader storage.Uploader, newBrowser BrowserFactory, defaultCfg config.Config, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	s := &Server{
		registry:     registry,
		uploader:     uploader,
		newBrowser:   newBrowser,
		defaultCfg:   defaultCfg,
		log:          log,
		broadcasters: newRunBroadcasters(),
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /discoveries", s.handleCreateDiscovery)
	s.mux.HandleFunc("GET /discoveries/{id}", s.handleGetDiscovery)
	s.mux.HandleFunc("GET /discoveries/{id}/events", s.handleDiscoveryEvents)

	return s
}

// Handler returns the Server's http.Handler, for embedding in a larger mux
// or driving directly from httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // the SSE endpoint streams for the life of a run
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

// createDiscoveryRequest is the JSON body for POST /discoveries.
type createDiscoveryRequest struct {
	AppName         string   `json:"appName"`
	EntryPoints     []string `json:"entryPoints"`
	AppType         string   `json:"appType,omitempty"`
	LoginEmail      string   `json:"loginEmail,omitempty"`
	LoginPassword   string   `json:"loginPassword,omitempty"`
	MaxDepth        int      `json:"maxDepth,omitempty"`
	MaxNodes        int      `json:"maxNodes,omitempty"`
	DomainWhitelist []string `json:"domainWhitelist,omitempty"`
	Headless        *bool    `json:"headless,omitempty"`
}

// createDiscoveryResponse is returned immediately from POST /discoveries.
type createDiscoveryResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

func (s *Server) handleCreateDiscovery(w http.ResponseWriter, r *http.Request) {
	var req createDiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.EntryPoints) == 0 {
		writeError(w, http.StatusBadRequest, "entryPoints is required")
		return
	}

	cfg := s.defaultCfg
	cfg.EntryPoints = req.EntryPoints
	if req.AppName != "" {
		cfg.AppName = req.AppName
	}
	if req.AppType != "" {
		cfg.AppType = req.AppType
	}
	if req.MaxDepth > 0 {
		cfg.MaxDepth = req.MaxDepth
	}
	if req.MaxNodes > 0 {
		cfg.MaxNodes = req.MaxNodes
	}
	if len(req.DomainWhitelist) > 0 {
		cfg.DomainWhitelist = req.DomainWhitelist
	}
	if req.Headless != nil {
		cfg.Headless = *req.Headless
	}
	if req.LoginEmail != "" && req.LoginPassword != "" {
		cfg.LoginCredentials = &login.Credentials{Email: req.LoginEmail, Password: req.LoginPassword}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run := s.registry.Create(req.EntryPoints[0])
	broadcaster := s.broadcasters.create(run.ID)

	// The run outlives the HTTP request that started it; it is driven by a
	// background context rather than r.Context() so closing the connection
	// does not cancel a discovery in progress.
	go s.runDiscovery(context.Background(), run.ID, cfg, broadcaster)

	writeJSON(w, http.StatusAccepted, createDiscoveryResponse{
		RunID:  run.ID,
		Status: string(run.Status),
	})
}

func (s *Server) runDiscovery(ctx context.Context, runID string, cfg config.Config, sink events.Sink) {
	defer s.broadcasters.close(runID)

	br, err := s.newBrowser(ctx, cfg.Headless)
	if err != nil {
		_ = s.registry.Fail(runID, fmt.Errorf("failed to acquire browser: %w", err))
		return
	}

	store := graphstore.New(runID, cfg.AppName, graphstore.Slugify(cfg.AppName), cfg.EntryPoints, s.uploader)
	exp := explorer.New(cfg, br, store, sink, s.log)

	rep, err := exp.Run(ctx)
	if err != nil {
		_ = s.registry.Fail(runID, err)
		return
	}
	_ = s.registry.Complete(runID, rep)
}

func (s *Server) handleGetDiscovery(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "run id is required")
		return
	}

	run, err := s.registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %q not found", id))
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDiscoveryEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	broadcaster, ok := s.broadcasters.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %q not found or already finished", id))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch, unsubscribe := broadcaster.Subscribe()
	defer unsubscribe()

	for {
		select {
		case ev, open := <-ch:
			if !open {
				return
			}
			payload, err := sseJSON.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Tag, payload)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
