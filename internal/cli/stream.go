package cli

import (
	"github.com/spf13/cobra"
)

// NewStreamCommand creates the stream command.
func NewStreamCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream <method> [json-arg...]",
		Short: "Invoke a generator method and print each yielded value as a JSON line",
		Long: `Invoke a generator-backed method from the contract and print each
yielded value on its own line as JSON.

Example:
  pybridge stream scan_rows '"2026-08"' --contract reports.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(cmd, rootOpts, args[0], args[1:])
		},
	}
	return cmd
}

func runStream(cmd *cobra.Command, opts *RootOptions, method string, rawArgs []string) error {
	callArgs, err := parseArgs(rawArgs)
	if err != nil {
		return err
	}

	mod, closeBridge, err := openModule(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closeBridge()

	for value, err := range mod.Stream(cmd.Context(), method, callArgs...) {
		if err != nil {
			return err
		}
		if err := printJSON(cmd, value); err != nil {
			return err
		}
	}
	return nil
}
