package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	pybridge "github.com/hostbridge/pybridge-go"
)

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <method> [json-arg...]",
		Short: "Invoke a unary method and print its result as JSON",
		Long: `Invoke a unary method from the contract and print its result as JSON.

Each positional argument after the method name is parsed as a JSON value
and passed through to the method.

Example:
  pybridge call row_count '"2026-08"' --contract reports.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, rootOpts, args[0], args[1:])
		},
	}
	return cmd
}

func runCall(cmd *cobra.Command, opts *RootOptions, method string, rawArgs []string) error {
	callArgs, err := parseArgs(rawArgs)
	if err != nil {
		return err
	}

	mod, closeBridge, err := openModule(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closeBridge()

	result, err := mod.Invoke(cmd.Context(), method, callArgs...)
	if err != nil {
		return err
	}

	return printJSON(cmd, result)
}

// parseArgs decodes each positional argument as a JSON value.
func parseArgs(raw []string) ([]any, error) {
	args := make([]any, 0, len(raw))
	for i, r := range raw {
		var v any
		if err := json.Unmarshal([]byte(r), &v); err != nil {
			return nil, fmt.Errorf("argument %d is not valid JSON: %w", i+1, err)
		}
		args = append(args, v)
	}
	return args, nil
}

func openModule(ctx context.Context, opts *RootOptions) (*pybridge.Module, func() error, error) {
	moduleName, contract, err := pybridge.LoadContractFile(opts.Contract)
	if err != nil {
		return nil, nil, err
	}

	bridgeOpts := []pybridge.Option{pybridge.WithLogger(opts.logger())}
	if opts.Interp != "" {
		bridgeOpts = append(bridgeOpts, pybridge.WithInterpPath(opts.Interp))
	}
	if opts.Bootstrap != "" {
		bridgeOpts = append(bridgeOpts, pybridge.WithBootstrap(opts.Bootstrap))
	}

	bridge := pybridge.New(bridgeOpts...)
	mod, err := bridge.Module(ctx, moduleName, contract)
	if err != nil {
		bridge.Close()
		return nil, nil, err
	}
	return mod, bridge.Close, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
