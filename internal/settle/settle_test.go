package settle_test

import (
	"context"
	"testing"
	"time"

	"github.com/tomasbasham/sitegraph/internal/browsertest"
	"github.com/tomasbasham/sitegraph/internal/settle"
)

func TestSettleReturnsImmediatelyOnMutation(t *testing.T) {
	page := &browsertest.Page{URL: "https://ex.test/", HTML: `<html><body><main></main></body></html>`}
	fake := browsertest.New(page)
	if err := fake.Goto(context.Background(), page.URL); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	settle.Settle(context.Background(), fake, 2*time.Second)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("expected Settle to return promptly once mutation is observed, took %s", elapsed)
	}
}

func TestSettleReturnsPromptlyWithNonPositiveGraceWindow(t *testing.T) {
	page := &browsertest.Page{URL: "https://ex.test/", HTML: `<html><body><main></main></body></html>`}
	fake := browsertest.New(page)
	if err := fake.Goto(context.Background(), page.URL); err != nil {
		t.Fatal(err)
	}

	// A zero grace window falls back to settle.DefaultGraceWindow; since the
	// fake always reports a mutation on first poll, this still returns fast.
	start := time.Now()
	settle.Settle(context.Background(), fake, 0)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("expected Settle to return promptly, took %s", elapsed)
	}
}
