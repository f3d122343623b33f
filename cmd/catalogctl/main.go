// Command catalogctl checks and inspects lesson documents.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "catalogctl",
		Short:        "Validate and inspect lesson catalogs",
		SilenceUsage: true,
	}
	root.AddCommand(newValidateCmd())
	root.AddCommand(newShowCmd())
	return root
}
