// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "darkstat",
	Short: "darkstat - passive network traffic monitor",
	Long: `darkstat captures network traffic on an interface, decodes each frame
through the link, network and transport layers, and accounts the result
per host, protocol and port. Host addresses are reverse-resolved
asynchronously by a privilege-dropped child process.`,
	Version: "3.0.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/darkstat/config.yml",
		"config file path")
}
