package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/sitegraph/internal/browser"
	"github.com/tomasbasham/sitegraph/internal/config"
	"github.com/tomasbasham/sitegraph/internal/explorer"
	"github.com/tomasbasham/sitegraph/internal/graphstore"
	"github.com/tomasbasham/sitegraph/internal/login"
	"github.com/tomasbasham/sitegraph/internal/storage"
)

// RunOptions holds the options for the `run` command, which drives one
// discovery pass to completion and prints its Report.
type RunOptions struct {
	AppName         string
	EntryPoints     []string
	ConfigPath      string
	OutDir          string
	Headless        bool
	LoginEmail      string
	LoginPassword   string
	MaxDepth        int
	MaxNodes        int
	DomainWhitelist []string

	iooption.IOStreams
}

var (
	runLong = templates.LongDesc(`Run a single site graph discovery pass against one or more entry URLs.`)

	runExample = templates.Examples(`
		# Discover the graph of a single-page app
		sitegraph run https://app.example.com --max-nodes 100

		# Discover with credentials for a login-gated app
		sitegraph run https://app.example.com --login-email me@example.com --login-password hunter2`)
)

// NewRunOptions provides an initialised RunOptions instance.
func NewRunOptions(streams iooption.IOStreams) *RunOptions {
	return &RunOptions{
		IOStreams: streams,
	}
}

// NewRunCommand creates the `run` command.
func NewRunCommand(o *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "run [URL...]",
		DisableFlagsInUseLine: true,
		Short:                 "Run a discovery pass and print its report",
		Long:                  runLong,
		Example:               runExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run()
		},
	}

	pflags := cmd.PersistentFlags()
	pflags.StringVarP(&o.AppName, "app-name", "a", "", "Graph name and persistence slug (default: first entry point's host)")
	pflags.StringVarP(&o.ConfigPath, "config", "c", "", "Path to a JSON config file (flags override its values)")
	pflags.StringVarP(&o.OutDir, "out", "o", "test-results", "Directory graphs and screenshots are persisted under")
	pflags.BoolVar(&o.Headless, "headless", true, "Run the browser headlessly")
	pflags.StringVar(&o.LoginEmail, "login-email", "", "Email to use for the login phase")
	pflags.StringVar(&o.LoginPassword, "login-password", "", "Password to use for the login phase")
	pflags.IntVar(&o.MaxDepth, "max-depth", config.DefaultMaxDepth, "BFS depth cap")
	pflags.IntVar(&o.MaxNodes, "max-nodes", config.DefaultMaxNodes, "Node count cap")
	pflags.StringSliceVar(&o.DomainWhitelist, "domain-whitelist", nil, "Host substrings that override the same-host Domain Policy")

	return cmd
}

func (o *RunOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("at least one entry point URL is required")
	}
	o.EntryPoints = args
	if o.AppName == "" {
		o.AppName = graphstore.Slugify(o.EntryPoints[0])
		if u, err := url.Parse(o.EntryPoints[0]); err == nil && u.Hostname() != "" {
			o.AppName = u.Hostname()
		}
	}

	if o.ConfigPath != "" {
		expanded, err := homedir.Expand(o.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to expand --config path %q: %w", o.ConfigPath, err)
		}
		o.ConfigPath = expanded
	}
	expandedOut, err := homedir.Expand(o.OutDir)
	if err != nil {
		return fmt.Errorf("failed to expand --out path %q: %w", o.OutDir, err)
	}
	o.OutDir = expandedOut

	return nil
}

func (o *RunOptions) Validate() error {
	if len(o.EntryPoints) == 0 {
		return fmt.Errorf("at least one entry point URL is required")
	}
	return nil
}

func (o *RunOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := o.buildConfig()
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetFormatter(&prefixed.TextFormatter{FullTimestamp: true})

	br, err := browser.NewChrome(ctx, browser.ChromeOptions{Headless: cfg.Headless, Logger: log})
	if err != nil {
		return fmt.Errorf("failed to acquire browser: %w", err)
	}

	uploader, err := storage.NewLocalUploader(o.OutDir)
	if err != nil {
		return fmt.Errorf("failed to initialise local uploader: %w", err)
	}

	store := graphstore.New(uuid.NewString(), cfg.AppName, o.AppName, cfg.EntryPoints, uploader)

	exp := explorer.New(*cfg, br, store, nil, log)

	fmt.Fprintf(o.Out, "Starting discovery of %v...\n", cfg.EntryPoints)
	rep, err := exp.Run(ctx)
	if err != nil {
		return fmt.Errorf("discovery run failed: %w", err)
	}

	repJSON, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	fmt.Fprintln(o.Out, string(repJSON))

	if rep.Status == "error" {
		return fmt.Errorf("discovery run ended in error status")
	}
	return nil
}

func (o *RunOptions) buildConfig() (*config.Config, error) {
	var cfg config.Config
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	} else {
		cfg = config.Default()
	}

	cfg.AppName = o.AppName
	cfg.EntryPoints = o.EntryPoints
	cfg.Headless = o.Headless
	cfg.MaxDepth = o.MaxDepth
	cfg.MaxNodes = o.MaxNodes
	if len(o.DomainWhitelist) > 0 {
		cfg.DomainWhitelist = o.DomainWhitelist
	}
	if o.LoginEmail != "" && o.LoginPassword != "" {
		cfg.LoginCredentials = &login.Credentials{Email: o.LoginEmail, Password: o.LoginPassword}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(o.OutDir); os.IsNotExist(err) {
		if err := os.MkdirAll(o.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %q: %w", o.OutDir, err)
		}
	}
	return &cfg, nil
}
