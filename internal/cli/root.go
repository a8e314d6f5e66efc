// Package cli implements the pybridge command line tool for ad-hoc
// invocation of interpreter modules described by a YAML contract file.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all subcommands.
type RootOptions struct {
	Contract  string
	Interp    string
	Bootstrap string
	Verbose   bool
}

// NewRootCommand creates the root command for the pybridge CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pybridge",
		Short: "Invoke interpreter module methods over the line protocol",
		Long: `pybridge spawns an interpreter subprocess for the module named in a
YAML contract file and invokes its methods, printing results as JSON.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.Contract, "contract", "c", "", "path to YAML contract file (required)")
	cmd.PersistentFlags().StringVar(&opts.Interp, "interp", "", "explicit interpreter binary path")
	cmd.PersistentFlags().StringVar(&opts.Bootstrap, "bootstrap", "", "bootstrap script passed to the interpreter")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	_ = cmd.MarkPersistentFlagRequired("contract")

	cmd.AddCommand(NewCallCommand(opts))
	cmd.AddCommand(NewStreamCommand(opts))
	cmd.AddCommand(NewMethodsCommand(opts))

	return cmd
}

func (o *RootOptions) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
