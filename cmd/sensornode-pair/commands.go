package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/sensornode/internal/discovery"
	"github.com/muurk/sensornode/internal/pairing"
	"github.com/muurk/sensornode/internal/ui"
	"github.com/muurk/sensornode/internal/watch"
)

// Command flags
var (
	agentAddr    string
	agentName    string
	scanTimeout  int
	description  string
	waitFor      time.Duration
	assumeYes    bool
	jsonOutput   bool
	watchRefresh time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVar(&agentAddr, "agent", "", "Agent address, host:port or URL (skips discovery)")
	rootCmd.PersistentFlags().StringVar(&agentName, "name", "", "Device name to pick when several agents are found")
	rootCmd.PersistentFlags().IntVar(&scanTimeout, "timeout", 5, "Discovery timeout in seconds")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}

// scanCmd lists agents on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for sensornode agents on the network",
	Example: `  # Scan for 5 seconds (default)
  sensornode-pair scan

  # Longer scan
  sensornode-pair scan --timeout 15`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for sensornode agents (timeout: %ds)...\n\n", scanTimeout)

	agents, err := newScanner().ScanForAgents(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(agents) == 0 {
		fmt.Println("No agents found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the agent is running ('sensornode run')")
		fmt.Println("  - Check that pairing.advertise is enabled in its config")
		fmt.Println("  - Try increasing --timeout")
		fmt.Println("  - Use --agent to give the address directly")
		return nil
	}

	fmt.Printf("Found %d agent(s):\n\n", len(agents))
	for i, a := range agents {
		fmt.Printf("%d. %s\n", i+1, a.Name)
		fmt.Printf("   Address: %s\n", a.BaseURL())
		fmt.Printf("   Host:    %s\n", a.Hostname)
		if v := a.GetMetadata(discovery.TxtVersion); v != "" {
			fmt.Printf("   Version: %s\n", v)
		}
		fmt.Println()
	}
	fmt.Println("Use 'sensornode-pair pair <ssid> --name <device>' to send credentials")
	return nil
}

// pairCmd sends credentials
var pairCmd = &cobra.Command{
	Use:   "pair <ssid> [password]",
	Short: "Send Wi-Fi credentials to an agent",
	Long: `Send Wi-Fi credentials to an agent.

The agent attempts to join immediately, even if it is already connected.
If the join fails it clears its stored credentials and blinks red.

When the password is omitted it is read from the terminal without echo.`,
	Example: `  # Prompt for the password
  sensornode-pair pair Home

  # Pass everything and wait for the outcome
  sensornode-pair pair Home secret123 --agent 192.168.1.40:8088 --wait 15s

  # Credentials and a description in one message
  sensornode-pair pair Home secret123 --description "Kitchen"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPair,
}

func init() {
	pairCmd.Flags().StringVar(&description, "description", "", "Also send a device description")
	pairCmd.Flags().DurationVar(&waitFor, "wait", 0, "Wait this long for the agent to report CONNECTED")
}

func runPair(cmd *cobra.Command, args []string) error {
	ssid := args[0]
	var password string
	if len(args) == 2 {
		password = args[1]
	} else {
		p, err := readPassword(ssid)
		if err != nil {
			return err
		}
		password = p
	}
	if ssid == "" || password == "" {
		return errors.New("ssid and password must both be non-empty")
	}

	target, name, err := resolveAgent(cmd.Context())
	if err != nil {
		return err
	}

	msg := pairing.NewCredentialsMessage(ssid, password)
	if description != "" {
		msg.Description = &description
	}

	client := pairing.NewClient(target)
	if err := client.Send(cmd.Context(), msg); err != nil {
		fmt.Println(ui.NewFailureResult("Pairing failed", err, []string{
			"Check that the agent is running and reachable at " + target,
		}).Render())
		return err
	}

	result := ui.NewSuccessResult("Credentials sent", map[string]string{
		"Device": name,
		"Agent":  target,
		"SSID":   ssid,
	})

	if waitFor > 0 {
		st, err := waitForConnected(cmd.Context(), client, waitFor)
		if err != nil {
			fmt.Println(ui.NewFailureResult("Agent did not connect", err, []string{
				"Check the password and that " + ssid + " is in range of the agent",
				"Run 'sensornode-pair status' to see the agent's state",
			}).Render())
			return err
		}
		result.AddDetail("State", st.State)
	}

	fmt.Println(result.Render())
	return nil
}

// waitForConnected polls the agent until it reports CONNECTED or timeout.
func waitForConnected(ctx context.Context, client *pairing.Client, timeout time.Duration) (*pairing.DeviceStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var last *pairing.DeviceStatus
	for {
		if st, err := client.FetchStatus(ctx); err == nil {
			last = st
			if st.Connected {
				return st, nil
			}
		}

		select {
		case <-ctx.Done():
			if last != nil {
				return nil, fmt.Errorf("agent still %s after %s", last.State, timeout)
			}
			return nil, fmt.Errorf("no status from agent within %s", timeout)
		case <-ticker.C:
		}
	}
}

func readPassword(ssid string) (string, error) {
	fmt.Printf("Password for %s: ", ssid)

	if ui.IsTerminal(os.Stdin) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// forgetCmd sends the forget command
var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Make an agent drop its stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, name, err := resolveAgent(cmd.Context())
		if err != nil {
			return err
		}

		if !assumeYes && !ui.Confirm(os.Stdin, os.Stdout, "Forget credentials on "+name,
			[]string{
				"The agent disconnects from its network immediately",
				"It stops uploading readings until paired again",
			}, "FORGET") {
			fmt.Println("Aborted.")
			return nil
		}

		if err := pairing.NewClient(target).Send(cmd.Context(), pairing.NewForgetMessage()); err != nil {
			return fmt.Errorf("failed to send forget: %w", err)
		}
		fmt.Println(ui.NewSuccessResult("Forget sent", map[string]string{"Device": name, "Agent": target}).Render())
		return nil
	},
}

func init() {
	forgetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
}

// describeCmd sends a description
var describeCmd = &cobra.Command{
	Use:   "describe <text>",
	Short: "Set an agent's description",
	Long: `Send a description to an agent. The agent posts it to the metadata
endpoint once, the next time it is connected. Sending the same description
again has no effect.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == pairing.ForgetCommand {
			return fmt.Errorf("%q is reserved; use 'sensornode-pair forget'", pairing.ForgetCommand)
		}
		if args[0] == "" {
			return errors.New("description must not be empty")
		}

		target, name, err := resolveAgent(cmd.Context())
		if err != nil {
			return err
		}
		if err := pairing.NewClient(target).Send(cmd.Context(), pairing.NewDescriptionMessage(args[0])); err != nil {
			return fmt.Errorf("failed to send description: %w", err)
		}
		fmt.Println(ui.NewSuccessResult("Description sent", map[string]string{
			"Device":      name,
			"Description": args[0],
		}).Render())
		return nil
	},
}

// statusCmd prints an agent's status once
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show an agent's connectivity status",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _, err := resolveAgent(cmd.Context())
		if err != nil {
			return err
		}

		st, err := pairing.NewClient(target).FetchStatus(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			data, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		details := map[string]string{
			"State":   ui.StateBadge(st.State),
			"Network": st.SSID,
			"Uploads": fmt.Sprintf("%d ok, %d failed", st.UploadsOK, st.UploadsFailed),
			"Joins":   fmt.Sprintf("%d attempts, %d failed", st.JoinAttempts, st.JoinFailures),
		}
		if st.Description != "" {
			details["Description"] = st.Description
		}
		if st.LastUpload != nil {
			details["Last upload"] = st.LastUpload.Local().Format(time.RFC3339)
		}

		if st.Connected {
			fmt.Println(ui.NewSuccessResult(st.DeviceName, details).Render())
		} else {
			fmt.Println(ui.NewWarningResult(st.DeviceName, details).Render())
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw status as JSON")
}

// watchCmd opens the live dashboard
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live status dashboard for an agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _, err := resolveAgent(cmd.Context())
		if err != nil {
			return err
		}
		return watch.Run(target, pairing.NewClient(target), watchRefresh)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchRefresh, "refresh", watch.DefaultInterval, "Refresh interval")
}

func newScanner() *discovery.Scanner {
	s := discovery.NewScanner()
	s.Timeout = time.Duration(scanTimeout) * time.Second
	return s
}

// resolveAgent returns the pairing base address and a display name for the
// target agent, using --agent or mDNS discovery.
func resolveAgent(ctx context.Context) (target, name string, err error) {
	if agentAddr != "" {
		name = agentName
		if name == "" {
			name = agentAddr
		}
		return agentAddr, name, nil
	}

	scanner := newScanner()
	if agentName != "" {
		fmt.Printf("Looking for %s...\n", agentName)
		a, err := scanner.WaitForAgent(ctx, agentName)
		if err != nil {
			return "", "", fmt.Errorf("discovery failed: %w", err)
		}
		return a.BaseURL(), a.Name, nil
	}

	fmt.Println("No agent specified, attempting auto-discovery...")
	agents, err := scanner.ScanForAgents(ctx)
	if err != nil {
		return "", "", fmt.Errorf("discovery failed: %w", err)
	}

	switch len(agents) {
	case 0:
		return "", "", errors.New("no agents found. Use --agent to specify the address manually")
	case 1:
		a := agents[0]
		fmt.Printf("Found agent: %s (%s)\n\n", a.Name, a.BaseURL())
		return a.BaseURL(), a.Name, nil
	default:
		fmt.Printf("Found %d agents:\n", len(agents))
		for i, a := range agents {
			fmt.Printf("%d. %s (%s)\n", i+1, a.Name, a.BaseURL())
		}
		return "", "", errors.New("multiple agents found. Use --name or --agent to choose one")
	}
}
