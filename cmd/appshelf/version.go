package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/appshelf"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", appshelf.Name, appshelf.FullVersion())
			fmt.Fprintf(out, "  commit: %s\n", appshelf.GitCommit)
			fmt.Fprintf(out, "  branch: %s\n", appshelf.GitBranch)
			fmt.Fprintf(out, "  built:  %s\n", appshelf.BuildDate)
			fmt.Fprintf(out, "  go:     %s\n", runtime.Version())
		},
	}
}
