// Package settle waits for a detected front-end framework to finish
// painting before the rest of the engine observes the DOM.
package settle

import (
	"context"
	_ "embed"
	"time"

	"github.com/tomasbasham/sitegraph/internal/browser"
)

// script installs a MutationObserver on the best-guess application root and
// records when it has fired at least once, then disconnects. The comment it
// begins with lets a test fake recognize this call without a JS engine of
// its own.
//
//go:embed settle.js
var script string

// installMarker is the literal substring settle.js begins with (see the
// file itself). The test fake in internal/browsertest matches the same
// text through its own string literal; it does not reference this
// constant.
const installMarker = "/*__sitegraph_settle_install__*/"

const pollMarker = "window.__sitegraphMutated === true"

// DefaultGraceWindow bounds how long Settle waits for a mutation when no
// caller-specific value is supplied.
const DefaultGraceWindow = 2 * time.Second

const pollInterval = 100 * time.Millisecond

// Settle races a MutationObserver completion against graceWindow. It never
// returns an error: timeout is an acceptable, silent outcome — the caller
// proceeds to observe whatever DOM resulted.
func Settle(ctx context.Context, br browser.Browser, graceWindow time.Duration) {
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}

	if err := br.Evaluate(ctx, script, nil); err != nil {
		// Failure to install the observer is silent per the Framework
		// Settler's contract — the crawl proceeds regardless.
		return
	}

	deadline := time.Now().Add(graceWindow)
	for time.Now().Before(deadline) {
		var mutated bool
		if err := br.Evaluate(ctx, pollMarker, &mutated); err != nil {
			return
		}
		if mutated {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}
