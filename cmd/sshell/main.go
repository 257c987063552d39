package main

import (
	"github.com/spf13/cobra"

	"sshell/internal/shell"
)

var rootCmd = &cobra.Command{
	Use:   "sshell",
	Short: "A simple shell with pipelines and background jobs",
	Long: `sshell reads one command line at a time, runs it as a pipeline of
processes with optional file redirection, and tracks jobs launched with a
trailing & in a bounded table, reporting their completion asynchronously.`,
	Version:       "1.2",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return shell.New().Run()
	},
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
