package login_test

import (
	"context"
	"testing"

	"github.com/tomasbasham/sitegraph/internal/browsertest"
	"github.com/tomasbasham/sitegraph/internal/events"
	"github.com/tomasbasham/sitegraph/internal/login"
)

func TestRunSkipsWhenNoLoginFormPresent(t *testing.T) {
	fake := browsertest.New(&browsertest.Page{
		URL:  "https://ex.test/",
		HTML: `<html><body><h1>Welcome</h1></body></html>`,
	})

	res := login.Run(context.Background(), fake, "https://ex.test/", login.Credentials{}, events.Null{})
	if res.Attempted {
		t.Fatalf("expected no login attempt without a login form, got %+v", res)
	}
}

func TestRunReportsErrorWithoutCredentials(t *testing.T) {
	fake := browsertest.New(&browsertest.Page{
		URL: "https://ex.test/",
		HTML: `<html><body>
			<input type="email" name="email">
			<input type="password" name="password">
			<button type="submit">Log In</button>
		</body></html>`,
	})

	res := login.Run(context.Background(), fake, "https://ex.test/", login.Credentials{}, events.Null{})
	if !res.Attempted {
		t.Fatal("expected Attempted=true once a login form is detected")
	}
	if res.RewrittenURL != "" {
		t.Fatalf("expected no rewritten URL when login could not proceed, got %q", res.RewrittenURL)
	}
}

func TestRunDetectsPostLoginRedirect(t *testing.T) {
	dashboard := &browsertest.Page{
		URL:  "https://ex.test/dashboard",
		HTML: `<html><body><h1>Dashboard</h1></body></html>`,
	}
	entry := &browsertest.Page{
		URL: "https://ex.test/",
		HTML: `<html><body>
			<input type="email" name="email">
			<input type="password" name="password">
			<button type="submit">Log In</button>
		</body></html>`,
		Outcomes: map[string]browsertest.Outcome{
			"Log In": {NavigateTo: "https://ex.test/dashboard"},
		},
	}

	fake := browsertest.New(entry, dashboard)

	res := login.Run(context.Background(), fake, "https://ex.test/", login.Credentials{
		Email:    "user@example.com",
		Password: "hunter2",
	}, events.Null{})

	if !res.Attempted {
		t.Fatal("expected Attempted=true")
	}
	if res.RewrittenURL != "https://ex.test/dashboard" {
		t.Fatalf("expected rewritten URL to the post-login page, got %q", res.RewrittenURL)
	}
}
