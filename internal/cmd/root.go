package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"
)

var (
	rootLong = templates.LongDesc(`
		sitegraph drives a headless browser to build a directed multigraph of
		an application's UI states: nodes are distinguishable states (URL plus
		DOM fingerprint) and edges are the interactive elements that transition
		between them.`)

	rootExamples = templates.Examples(``)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// SiteGraphOptions defines the options for the `sitegraph` command.
type SiteGraphOptions struct {
	iooption.IOStreams
}

// NewSiteGraphOptions provides an initialised SiteGraphOptions instance.
func NewSiteGraphOptions(streams iooption.IOStreams) *SiteGraphOptions {
	return &SiteGraphOptions{
		IOStreams: streams,
	}
}

// NewRootCommand creates the `sitegraph` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewSiteGraphOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `sitegraph` command and its nested
// children.
func NewRootCommandWithArgs(o *SiteGraphOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "sitegraph [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Automatic site graph discovery",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	printerOpts := printer.WarningPrinterOptions{Color: true}
	printer := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(printer))

	cmd.AddCommand(NewRunCommand(NewRunOptions(o.IOStreams)))
	cmd.AddCommand(NewServeCommand(NewServeOptions()))

	// The global normalisation function ensures that all flags specified meet
	// the desired format, changing users' input if necessary.
	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
