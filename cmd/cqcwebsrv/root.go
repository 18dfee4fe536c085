package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd()*cobra.Command {
	root:= &cobra.Command{
		Use: "cqcwebsrv",
		Short: "Embedded multi-protocol web server",
		SilenceUsage: true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}
