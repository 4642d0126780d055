// Sensornode is the sensor agent.
//
// It derives a device name from the host's hardware address, accepts Wi-Fi
// credentials over its pairing channel, joins the network, and posts a
// sensor reading to the configured endpoint every few seconds. The local
// credential store can also be inspected and edited from this tool.
//
// Usage:
//
//	sensornode [command] [flags]
//
// See 'sensornode --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/sensornode/internal/logging"
	"github.com/muurk/sensornode/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sensornode",
	Short: "Sensor agent with Wi-Fi pairing",
	Long: `A sensor agent that reports readings to an HTTP endpoint.

Credentials arrive over the pairing channel (websocket or HTTP POST on
/pair). The agent joins the network, persists the credentials, and posts a
reading every uplink interval. A status LED is rendered to the terminal.

Pair a running agent with the separate 'sensornode-pair' utility.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// run configures logging itself from --log-level and the config file
		if cmd.Name() == "run" {
			return nil
		}
		return logging.InitializeFromEnv()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: <config dir>/config.yaml)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sensornode %s\n", version.Full())
	},
}
