package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(opts.stdout, "privatise %s\n", version)
			fmt.Fprintf(opts.stdout, "Commit: %s\n", commit)
			fmt.Fprintf(opts.stdout, "Built: %s\n", date)
		},
	}
}
