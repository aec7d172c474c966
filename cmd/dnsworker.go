package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yjh0502/darkstat/internal/dns"
)

// dnsWorkerCmd is the hidden entry point the monitor re-executes itself
// with to run the reverse-DNS worker child.
var dnsWorkerCmd = &cobra.Command{
	Use:    dns.WorkerArg,
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dns.RunWorker(os.Stdin, os.Stdout, nil)
	},
}

func init() {
	rootCmd.AddCommand(dnsWorkerCmd)
}
