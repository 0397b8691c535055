package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tomasbasham/sitegraph/internal/config"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	c := config.Default()
	if c.MaxDepth != 4 || c.MaxNodes != 50 || c.MaxElementsPerPage != 30 || c.TimeoutMs != 300_000 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if !c.Headless {
		t.Error("expected Headless to default to true")
	}
}

func TestValidateRequiresAppNameAndEntryPoints(t *testing.T) {
	c := config.Default()
	if err := c.Validate(); err == nil {
		t.Fatal("expected error without AppName/EntryPoints")
	}
	c.AppName = "demo"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error without EntryPoints")
	}
	c.EntryPoints = []string{"https://ex.test/"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"appName":"demo","entryPoints":["https://ex.test/"],"maxNodes":5}`), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.MaxNodes != 5 {
		t.Errorf("expected explicit maxNodes to survive, got %d", c.MaxNodes)
	}
	if c.MaxDepth != 4 {
		t.Errorf("expected omitted maxDepth to default to 4, got %d", c.MaxDepth)
	}
}
