package explorer

import (
	"strings"

	"github.com/tomasbasham/sitegraph/internal/events"
)

// componentRootMarkers and dashboardMarkers are substrings sought in raw
// page HTML to feature-sniff the application family on first visit, per
// §4.10 step 6. Detection is best-effort; an unrecognized family is left
// blank rather than guessed.
var componentRootMarkers = []string{`id="root"`, `id="app"`, `id="__next"`}
var dashboardMarkers = []string{`dataframe-dashboard`, `dash-dashboard`, `_dash-app-content`}

// detectAppType feature-sniffs html for known front-end family markers and
// records the result on the store's graph. Honors cfg.AppType as an
// explicit override that skips sniffing entirely.
func (e *Explorer) detectAppType(html string) {
	if e.cfg.AppType != "" {
		e.store.Graph.AppType = e.cfg.AppType
		e.store.Graph.Metadata.DetectedAppType = e.cfg.AppType
		e.sink.Emit(events.AppTypeDetected, e.cfg.AppType)
		return
	}

	appType := sniffAppType(html)
	if appType == "" {
		return
	}
	e.store.Graph.AppType = appType
	e.store.Graph.Metadata.DetectedAppType = appType
	e.sink.Emit(events.AppTypeDetected, appType)
}

func sniffAppType(html string) string {
	for _, m := range dashboardMarkers {
		if strings.Contains(html, m) {
			return "dash"
		}
	}
	for _, m := range componentRootMarkers {
		if strings.Contains(html, m) {
			return "spa"
		}
	}
	return ""
}
