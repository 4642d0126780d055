// Sensornode-pair provisions sensornode agents.
//
// It finds agents on the local network over mDNS and sends them Wi-Fi
// credentials, a description, or the forget command through their pairing
// channel. It can also show an agent's status once or as a live dashboard.
//
// Usage:
//
//	sensornode-pair [command] [flags]
//
// See 'sensornode-pair --help' for available commands.
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

var rootCmd = &cobra.Command{
	Use:   "sensornode-pair",
	Short: "Sensornode pairing utility",
	Long: `A utility for provisioning sensornode agents.

Agents are found with mDNS (service _sensornode._tcp) unless --agent is
given. Messages are sent over the agent's websocket pairing channel.

Set SENSORNODE_LOG_LEVEL=debug to see the frames being sent.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeFromEnv()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sensornode-pair %s\n", version.Full())
	},
}
