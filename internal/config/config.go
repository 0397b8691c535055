// Package config defines the options accepted by a discovery run and their
// defaults, mirroring the option-struct-plus-defaulting pattern the CLI
// layer uses throughout this codebase.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tomasbasham/sitegraph/internal/login"
)

const (
	DefaultMaxDepth            = 4
	DefaultMaxNodes            = 50
	DefaultMaxElementsPerPage  = 30
	DefaultTimeoutMs           = 300_000
	DefaultGraceMs             = 2_000
)

// Config holds every recognized discovery option.
type Config struct {
	// AppName is used as the graph name and the persistence slug.
	AppName string `json:"appName"`

	// EntryPoints is the non-empty list of seed URLs.
	EntryPoints []string `json:"entryPoints"`

	// AppType is an optional family hint (e.g. "dash", "spa"); if empty the
	// engine auto-detects it from the first page visited.
	AppType string `json:"appType,omitempty"`

	// LoginCredentials, if set, enables the login phase before exploration.
	LoginCredentials *login.Credentials `json:"loginCredentials,omitempty"`

	MaxDepth           int `json:"maxDepth"`
	MaxNodes           int `json:"maxNodes"`
	MaxElementsPerPage int `json:"maxElementsPerPage"`

	Headless bool  `json:"headless"`
	SlowMoMs int64 `json:"slowMoMs"`
	TimeoutMs int64 `json:"timeoutMs"`

	// DomainWhitelist overrides the same-host Domain Policy when non-empty.
	DomainWhitelist []string `json:"domainWhitelist,omitempty"`
}

// Default returns a Config with every numeric option at its spec-mandated
// default and Headless true, requiring only AppName and EntryPoints to be
// filled in by the caller.
func Default() Config {
	return Config{
		MaxDepth:           DefaultMaxDepth,
		MaxNodes:           DefaultMaxNodes,
		MaxElementsPerPage: DefaultMaxElementsPerPage,
		Headless:           true,
		TimeoutMs:          DefaultTimeoutMs,
	}
}

// ApplyDefaults fills zero-valued fields of c with their defaults in place,
// the same way the CLI layer seeds flag defaults before parsing overrides.
func (c *Config) ApplyDefaults() {
	if c.MaxDepth == 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxNodes == 0 {
		c.MaxNodes = DefaultMaxNodes
	}
	if c.MaxElementsPerPage == 0 {
		c.MaxElementsPerPage = DefaultMaxElementsPerPage
	}
	if c.TimeoutMs == 0 {
		c.TimeoutMs = DefaultTimeoutMs
	}
}

// Validate checks the invariants the Explorer Core depends on before it will
// start a run.
func (c *Config) Validate() error {
	if c.AppName == "" {
		return fmt.Errorf("config: appName is required")
	}
	if len(c.EntryPoints) == 0 {
		return fmt.Errorf("config: at least one entry point is required")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("config: maxDepth must be >= 0")
	}
	if c.MaxNodes <= 0 {
		return fmt.Errorf("config: maxNodes must be > 0")
	}
	return nil
}

// GraceWindow returns the configured settle grace window, which is not a
// caller-facing option in the recognized table but is derived here so
// callers needn't import internal/settle just to read its default.
func (c *Config) GraceWindow() time.Duration {
	return time.Duration(DefaultGraceMs) * time.Millisecond
}

// Timeout returns TimeoutMs as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SlowMo returns SlowMoMs as a time.Duration.
func (c *Config) SlowMo() time.Duration {
	return time.Duration(c.SlowMoMs) * time.Millisecond
}

// Load reads and parses a Config from a JSON file at path, applying defaults
// to any option the file omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %q: %w", path, err)
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: failed to parse %q: %w", path, err)
	}
	c.ApplyDefaults()
	return &c, nil
}
