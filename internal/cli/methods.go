package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	pybridge "github.com/hostbridge/pybridge-go"
)

// NewMethodsCommand creates the methods command.
func NewMethodsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "methods",
		Short:         "List the methods declared by the contract file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			moduleName, contract, err := pybridge.LoadContractFile(rootOpts.Contract)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "module: %s\n", moduleName)
			for _, m := range contract.Methods() {
				kind := "unary"
				if contract.Streams(m) {
					kind = "stream"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s (%s)\n", m, kind)
			}
			return nil
		},
	}
}
