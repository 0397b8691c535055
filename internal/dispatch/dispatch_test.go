package dispatch_test

import (
	"context"
	"testing"

	"github.com/tomasbasham/sitegraph/internal/browsertest"
	"github.com/tomasbasham/sitegraph/internal/dispatch"
)

func TestClickByCSSPath(t *testing.T) {
	fake := browsertest.New(&browsertest.Page{
		URL: "https://ex.test/",
		Elements: []browsertest.Element{
			{Kind: "button", Text: "Save", CSSPath: "#root > button"},
		},
		Outcomes: map[string]browsertest.Outcome{
			"Save": {MutateTo: &browsertest.Page{URL: "https://ex.test/", Title: "Saved"}},
		},
	})
	if err := fake.Goto(context.Background(), "https://ex.test/"); err != nil {
		t.Fatal(err)
	}

	ok := dispatch.Click(context.Background(), fake, dispatch.Descriptor{CSSPath: "#root > button", Text: "Save"})
	if !ok {
		t.Fatal("expected click to succeed via CSS path strategy")
	}
	title, _ := fake.Title(context.Background())
	if title != "Saved" {
		t.Errorf("expected mutated title %q, got %q", "Saved", title)
	}
}

func TestClickFallsBackToExactText(t *testing.T) {
	fake := browsertest.New(&browsertest.Page{
		URL: "https://ex.test/",
		Elements: []browsertest.Element{
			{Kind: "button", Text: "Next"},
		},
		Outcomes: map[string]browsertest.Outcome{
			"Next": {NavigateTo: "https://ex.test/2"},
		},
	})
	fake.AddPage(&browsertest.Page{URL: "https://ex.test/2", Title: "Page 2"})
	_ = fake.Goto(context.Background(), "https://ex.test/")

	// No CSS path and no test-id on this descriptor: strategies 1-2 must
	// fail silently and strategy 3 (exact text) must succeed.
	ok := dispatch.Click(context.Background(), fake, dispatch.Descriptor{Text: "Next"})
	if !ok {
		t.Fatal("expected click to fall back to exact-text strategy")
	}
	url, _ := fake.URL(context.Background())
	if url != "https://ex.test/2" {
		t.Errorf("expected navigation to https://ex.test/2, got %q", url)
	}
}

func TestClickReplayOmitsPointerStrategy(t *testing.T) {
	fake := browsertest.New(&browsertest.Page{
		URL:      "https://ex.test/",
		Elements: []browsertest.Element{{Kind: "button", Text: "Ghost", X: 10, Y: 10, W: 10, H: 10}},
	})
	_ = fake.Goto(context.Background(), "https://ex.test/")

	// Only a bbox locator is present (no CSSPath/TestID/Text) — the replay
	// variant must not fall through to the pointer strategy and so must fail.
	ok := dispatch.ClickReplay(context.Background(), fake, dispatch.Descriptor{X: 15, Y: 15})
	if ok {
		t.Fatal("expected replay dispatch to fail without CSS path, test-id or text")
	}
}

func TestClickReturnsFalseWhenNothingMatches(t *testing.T) {
	fake := browsertest.New(&browsertest.Page{URL: "https://ex.test/"})
	_ = fake.Goto(context.Background(), "https://ex.test/")

	if dispatch.Click(context.Background(), fake, dispatch.Descriptor{Text: "Nonexistent"}) {
		t.Fatal("expected click against an unscripted element to fail")
	}
}
