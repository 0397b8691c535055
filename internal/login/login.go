// Package login implements the one-shot credentialed sign-in that runs
// before the crawl begins.
package login

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tomasbasham/sitegraph/internal/browser"
	"github.com/tomasbasham/sitegraph/internal/dispatch"
	"github.com/tomasbasham/sitegraph/internal/events"
	"github.com/tomasbasham/sitegraph/internal/settle"
)

// Credentials is the optional email+password pair that enables the login
// phase.
type Credentials struct {
	Email    string
	Password string
}

// emailSelectors is tried in order; the first visible match is filled.
var emailSelectors = []string{
	`input[type="email"]`,
	`input[name="email"]`,
	`input[name="username"]`,
	`input[id*="email"]`,
	`#email`,
}

var passwordSelectors = []string{
	`input[type="password"]`,
	`input[name="password"]`,
	`#password`,
}

var submitTexts = []string{"log in", "sign in", "login", "submit", "continue"}

const (
	maxStabilityPolls = 5
	stabilityPoll     = 500 * time.Millisecond
)

// Result reports what the login phase did, for the Explorer Core to act on.
type Result struct {
	// Attempted is true if login affordances were found and a sign-in was
	// tried (regardless of outcome).
	Attempted bool

	// RewrittenURL is non-empty when the post-login URL differs from the
	// declared entry URL; the Explorer Core must use it as the new entry
	// and mark both forms visited.
	RewrittenURL string
}

// Run navigates to entryURL, checks for login affordances, and — if found —
// fills and submits credentials. Login failures are reported through sink
// but never returned as an error: the crawl always proceeds, as anonymous
// if necessary.
func Run(ctx context.Context, br browser.Browser, entryURL string, creds Credentials, sink events.Sink) Result {
	if sink == nil {
		sink = events.Null{}
	}

	if err := br.Goto(ctx, entryURL); err != nil {
		sink.Emit(events.LoginError, err.Error())
		return Result{}
	}
	settle.Settle(ctx, br, settle.DefaultGraceWindow)

	html, err := br.OuterHTML(ctx)
	if err != nil {
		sink.Emit(events.LoginError, err.Error())
		return Result{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		sink.Emit(events.LoginError, err.Error())
		return Result{}
	}

	emailSel, passwordSel, ok := detectLoginForm(doc)
	if !ok {
		sink.Emit(events.LoginNotNeeded, nil)
		return Result{}
	}

	sink.Emit(events.LoginStart, nil)

	if creds.Email == "" || creds.Password == "" {
		sink.Emit(events.LoginError, "login form detected but no credentials configured")
		return Result{Attempted: true}
	}

	if err := br.Fill(ctx, emailSel, creds.Email); err != nil {
		sink.Emit(events.LoginError, err.Error())
		return Result{Attempted: true}
	}
	sink.Emit(events.LoginEmailFilled, nil)

	if err := br.Fill(ctx, passwordSel, creds.Password); err != nil {
		sink.Emit(events.LoginError, err.Error())
		return Result{Attempted: true}
	}
	sink.Emit(events.LoginPasswordFilled, nil)

	submitDescriptor := detectSubmit(doc)
	if !dispatch.Click(ctx, br, submitDescriptor) {
		sink.Emit(events.LoginError, "no submit affordance could be activated")
		return Result{Attempted: true}
	}

	settle.Settle(ctx, br, settle.DefaultGraceWindow)
	finalURL := pollURLStable(ctx, br)

	sink.Emit(events.LoginComplete, nil)

	if finalURL != "" && finalURL != entryURL {
		sink.Emit(events.LoginRedirect, finalURL)
		return Result{Attempted: true, RewrittenURL: finalURL}
	}
	return Result{Attempted: true}
}

// detectLoginForm inspects doc for the first visible email-like and
// password-like inputs, or — failing that — page text mentioning sign-in.
func detectLoginForm(doc *goquery.Document) (emailSel, passwordSel string, found bool) {
	for _, sel := range passwordSelectors {
		if doc.Find(sel).Length() > 0 {
			passwordSel = sel
			break
		}
	}
	if passwordSel == "" {
		text := strings.ToLower(doc.Text())
		if strings.Contains(text, "sign in") || strings.Contains(text, "log in") {
			found = true
		}
		return "", "", found
	}

	for _, sel := range emailSelectors {
		if doc.Find(sel).Length() > 0 {
			emailSel = sel
			break
		}
	}
	if emailSel == "" {
		return "", "", false
	}
	return emailSel, passwordSel, true
}

// detectSubmit builds a Descriptor for the first visible submit-like
// affordance: a submit-typed input/button, or a button/link whose text
// matches a known submit phrase.
func detectSubmit(doc *goquery.Document) dispatch.Descriptor {
	if sel := doc.Find(`button[type="submit"], input[type="submit"]`).First(); sel.Length() > 0 {
		return dispatch.Descriptor{CSSPath: cssSelectorFor(sel), Text: strings.TrimSpace(sel.Text())}
	}

	var text string
	doc.Find("button, [role=\"button\"], a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		candidate := strings.ToLower(strings.TrimSpace(s.Text()))
		for _, want := range submitTexts {
			if strings.Contains(candidate, want) {
				text = strings.TrimSpace(s.Text())
				return false
			}
		}
		return true
	})
	return dispatch.Descriptor{Text: text}
}

// cssSelectorFor returns a best-effort selector for a goquery Selection: its
// id if present, else the empty string, which leaves the click to the
// exact-text strategy.
func cssSelectorFor(s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		return "#" + id
	}
	return ""
}

func pollURLStable(ctx context.Context, br browser.Browser) string {
	prev, err := br.URL(ctx)
	if err != nil {
		return ""
	}
	for i := 0; i < maxStabilityPolls; i++ {
		select {
		case <-ctx.Done():
			return prev
		case <-time.After(stabilityPoll):
		}
		cur, err := br.URL(ctx)
		if err != nil {
			return prev
		}
		if cur == prev {
			return cur
		}
		prev = cur
	}
	return prev
}
