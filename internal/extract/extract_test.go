package extract_test

import (
	"context"
	"strings"
	"testing"

	"github.com/tomasbasham/sitegraph/internal/browsertest"
	"github.com/tomasbasham/sitegraph/internal/extract"
)

func TestExtractFiltersDangerousElements(t *testing.T) {
	fake := browsertest.New(&browsertest.Page{
		URL: "https://ex.test/",
		Elements: []browsertest.Element{
			{Kind: "link", Text: "Home", Href: "/", CSSPath: "a.home"},
			{Kind: "link", Text: "Log Out", Href: "/logout", CSSPath: "a.logout"},
			{Kind: "link", Text: "Docs", Href: "/manual.pdf", CSSPath: "a.docs"},
		},
	})
	_ = fake.Goto(context.Background(), "https://ex.test/")

	els, err := extract.Extract(context.Background(), fake, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 1 || els[0].Text != "Home" {
		t.Fatalf("expected only the Home link to survive the Danger Filter, got %+v", els)
	}
}

func TestExtractDedupesByTextAndPosition(t *testing.T) {
	fake := browsertest.New(&browsertest.Page{
		URL: "https://ex.test/",
		Elements: []browsertest.Element{
			{Kind: "button", Text: "Add", X: 10.2, Y: 20.2, CSSPath: "button.a"},
			{Kind: "button", Text: "Add", X: 10.4, Y: 20.3, CSSPath: "button.b"},
		},
	})
	_ = fake.Goto(context.Background(), "https://ex.test/")

	els, err := extract.Extract(context.Background(), fake, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 1 {
		t.Fatalf("expected duplicate (text, rounded position) to collapse to 1 element, got %d", len(els))
	}
}

func TestExtractRejectsLongNonLinkText(t *testing.T) {
	long := strings.Repeat("x", 81)
	fake := browsertest.New(&browsertest.Page{
		URL: "https://ex.test/",
		Elements: []browsertest.Element{
			{Kind: "button", Text: long, CSSPath: "button.long"},
			{Kind: "link", Text: long, Href: "/p", CSSPath: "a.long"},
		},
	})
	_ = fake.Goto(context.Background(), "https://ex.test/")

	els, err := extract.Extract(context.Background(), fake, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 1 || els[0].Kind != "link" {
		t.Fatalf("expected only the long link to survive, got %+v", els)
	}
}

func TestExtractRespectsCap(t *testing.T) {
	var elements []browsertest.Element
	for i := 0; i < 10; i++ {
		elements = append(elements, browsertest.Element{
			Kind: "button", Text: "btn", X: float64(i * 20), CSSPath: "button.n",
		})
	}
	fake := browsertest.New(&browsertest.Page{URL: "https://ex.test/", Elements: elements})
	_ = fake.Goto(context.Background(), "https://ex.test/")

	els, err := extract.Extract(context.Background(), fake, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 3 {
		t.Fatalf("expected cap of 3 elements, got %d", len(els))
	}
}

func TestExtractAssignsStableIDs(t *testing.T) {
	fake := browsertest.New(&browsertest.Page{
		URL: "https://ex.test/",
		Elements: []browsertest.Element{
			{Kind: "link", Text: "Home", Href: "/", CSSPath: "a.home"},
		},
	})
	_ = fake.Goto(context.Background(), "https://ex.test/")

	a, err := extract.Extract(context.Background(), fake, 30)
	if err != nil {
		t.Fatal(err)
	}
	b, err := extract.Extract(context.Background(), fake, 30)
	if err != nil {
		t.Fatal(err)
	}
	if a[0].ID != b[0].ID {
		t.Errorf("expected stable element id across repeated extraction, got %q and %q", a[0].ID, b[0].ID)
	}
	if len(a[0].ID) != 10 {
		t.Errorf("expected a 10-hex-character element id, got %q", a[0].ID)
	}
}
