package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/sitegraph/internal/browser"
	"github.com/tomasbasham/sitegraph/internal/config"
	"github.com/tomasbasham/sitegraph/internal/report"
	"github.com/tomasbasham/sitegraph/internal/server"
	"github.com/tomasbasham/sitegraph/internal/storage"
)

// ServeOptions holds the options for the `serve` command, which exposes
// discovery runs over an HTTP API instead of driving one from the CLI.
type ServeOptions struct {
	Port   int
	OutDir string
}

var (
	serveLong = templates.LongDesc(`Start the site graph discovery HTTP server.`)

	serveExample = templates.Examples(`
		# Start on the default port
		sitegraph serve

		# Start on a custom port, persisting graphs under ./graphs
		sitegraph serve --port 9090 --out ./graphs`)
)

func NewServeOptions() *ServeOptions {
	return &ServeOptions{}
}

func NewServeCommand(o *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the discovery HTTP server",
		Long:    serveLong,
		Example: serveExample,
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

	cmd.Flags().IntVarP(&o.Port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().StringVarP(&o.OutDir, "out", "o", "test-results", "Directory graphs and screenshots are persisted under")

	return cmd
}

func (o *ServeOptions) Complete(cmd *cobra.Command, args []string) error {
	expanded, err := homedir.Expand(o.OutDir)
	if err != nil {
		return fmt.Errorf("failed to expand --out path %q: %w", o.OutDir, err)
	}
	o.OutDir = expanded
	return nil
}

func (o *ServeOptions) Validate() error {
	return nil
}

func (o *ServeOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logrus.New()
	log.SetFormatter(&prefixed.TextFormatter{FullTimestamp: true})

	uploader, err := storage.NewLocalUploader(o.OutDir)
	if err != nil {
		return fmt.Errorf("failed to initialise local uploader: %w", err)
	}

	registry := report.NewRegistry()

	newBrowser := func(ctx context.Context, headless bool) (browser.Browser, error) {
		return browser.NewChrome(ctx, browser.ChromeOptions{Headless: headless, Logger: log})
	}

	defaults := config.Default()

	srv := server.New(registry, uploader, newBrowser, defaults, log)

	addr := fmt.Sprintf(":%d", o.Port)
	log.Infof("starting site graph discovery server on %s", addr)
	return srv.ListenAndServe(addr)
}
