package explorer

import (
	"context"
	"time"

	"github.com/tomasbasham/sitegraph/internal/events"
	"github.com/tomasbasham/sitegraph/internal/report"
)

// finish persists the graph and assembles the final Report, per §4.10
// Termination: the graph is persisted and a final event emitted regardless
// of how the loop ended.
func (e *Explorer) finish(ctx context.Context, status report.Status) *report.Report {
	e.store.Graph.Metadata.DiscoveryMs = time.Since(e.start).Milliseconds()

	if len(e.errors) > 0 && status == report.StatusSuccess {
		status = report.StatusPartial
	}

	timestamp := e.start.UTC().Format("20060102T150405Z")
	latest, _, err := e.store.Persist(ctx, timestamp)

	var savedTo string
	if err != nil {
		e.errors = append(e.errors, err.Error())
		if status != report.StatusError {
			status = report.StatusPartial
		}
	} else if latest != nil {
		savedTo = latest.SignedURL
	}

	if err := e.br.Close(); err != nil {
		e.errors = append(e.errors, err.Error())
	}

	rep := &report.Report{
		Graph:           e.store.Graph,
		Status:          status,
		NodesDiscovered: e.store.Graph.NodeCount(),
		EdgesDiscovered: len(e.store.Graph.Edges),
		Errors:          e.errors,
		DurationMs:      e.store.Graph.Metadata.DiscoveryMs,
		SavedTo:         savedTo,
	}

	e.log.WithField("status", status).
		WithField("nodes", rep.NodesDiscovered).
		WithField("edges", rep.EdgesDiscovered).
		Info("discovery run finished")

	switch status {
	case report.StatusError:
		e.sink.Emit(events.DiscoveryError, rep)
	default:
		e.sink.Emit(events.DiscoveryComplete, rep)
	}

	return rep
}
