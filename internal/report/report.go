// Package report defines the shape of a completed discovery run and an
// in-memory registry for tracking runs in flight, mirroring the teacher's
// operation lifecycle model but for one-shot discovery jobs rather than
// async capture jobs.
package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomasbasham/sitegraph/internal/graph"
)

// Status is the terminal classification of a discovery run.
type Status string

const (
	// StatusSuccess means the crawl completed within budget with no
	// per-item errors.
	StatusSuccess Status = "success"

	// StatusPartial means one or more per-item errors occurred but the
	// graph produced is still coherent.
	StatusPartial Status = "partial"

	// StatusError means setup failed or a fatal error aborted the run
	// before a usable graph could be produced.
	StatusError Status = "error"
)

// Report is the value returned at the end of a discovery run. Only its Graph
// is persisted; the Report itself is not written to storage.
type Report struct {
	Graph           *graph.Graph `json:"graph"`
	Status          Status       `json:"status"`
	NodesDiscovered int          `json:"nodesDiscovered"`
	EdgesDiscovered int          `json:"edgesDiscovered"`
	Errors          []string     `json:"errors,omitempty"`
	DurationMs      int64        `json:"durationMs"`
	SavedTo         string       `json:"savedTo,omitempty"`
}

// Run tracks the lifecycle of one discovery job for HTTP polling or an SSE
// relay, independent of the Report value eventually produced.
type Run struct {
	ID        string    `json:"id"`
	EntryURL  string     `json:"entryUrl"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Report    *Report    `json:"report,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Registry is a concurrency-safe in-memory store of Runs, one per server
// process. A multi-instance deployment would replace this with a shared
// backing store behind the same interface.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

// Create registers a new Run for entryURL and returns it. The run starts with
// StatusPartial and a nil Report; Complete or Fail sets its final status.
func (r *Registry) Create(entryURL string) *Run {
	run := &Run{
		ID:        uuid.New().String(),
		EntryURL:  entryURL,
		Status:    StatusPartial,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()
	return run
}

// Get returns a copy of the Run with the given id.
func (r *Registry) Get(id string) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("report: run %q not found", id)
	}
	copied := *run
	return &copied, nil
}

// Complete stores the final Report against a run and marks it with the
// Report's own status.
func (r *Registry) Complete(id string, rep *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return fmt.Errorf("report: run %q not found", id)
	}
	run.Report = rep
	run.Status = rep.Status
	run.UpdatedAt = time.Now()
	return nil
}

// Fail marks a run as having failed fatally before a Report could be built.
func (r *Registry) Fail(id string, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return fmt.Errorf("report: run %q not found", id)
	}
	run.Status = StatusError
	run.Error = err.Error()
	run.UpdatedAt = time.Now()
	return nil
}
