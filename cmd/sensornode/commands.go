package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/sensornode/internal/agent"
	"github.com/muurk/sensornode/internal/config"
	"github.com/muurk/sensornode/internal/credstore"
	"github.com/muurk/sensornode/internal/identity"
	"github.com/muurk/sensornode/internal/logging"
	"github.com/muurk/sensornode/internal/sensor"
	"github.com/muurk/sensornode/internal/ui"
)

// Command flags
var (
	logLevel   string
	listenAddr string
	storePath  string
	assumeYes  bool
	forceInit  bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(credsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(identityCmd)
	rootCmd.AddCommand(sensorCmd)

	credsCmd.PersistentFlags().StringVar(&storePath, "store", "", "Path to credential store (overrides store.path)")
	credsCmd.AddCommand(credsShowCmd)
	credsCmd.AddCommand(credsSetCmd)
	credsCmd.AddCommand(credsClearCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	sensorCmd.AddCommand(sensorPortsCmd)
}

// loadConfig reads --config and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if listenAddr != "" {
		cfg.Pairing.Listen = listenAddr
	}
	return cfg, nil
}

// runCmd starts the agent
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent",
	Long: `Run the sensor agent in the foreground.

The agent starts the pairing server, advertises it over mDNS, and runs the
connectivity loop until interrupted (Ctrl+C or SIGTERM).

While no credentials are stored the status LED blinks red. Send credentials
with 'sensornode-pair pair <ssid>'.`,
	Example: `  # Run with the default config file
  sensornode run

  # Debug logging on a different pairing port
  sensornode run --log-level debug --listen :9090

  # Use an explicit config file
  sensornode run --config ./sensornode.yaml`,
	RunE: runAgent,
}

func init() {
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&listenAddr, "listen", "", "Pairing listen address (overrides pairing.listen)")
	runCmd.Flags().StringVar(&storePath, "store", "", "Path to credential store (overrides store.path)")
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := logLevel
	if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}

	a, err := agent.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}

	fmt.Println(ui.NewHeader("sensornode agent", "sensornode run", map[string]string{
		"Device":  a.Identity.Name,
		"Pairing": cfg.Pairing.Listen,
		"Uplink":  cfg.Uplink.SensorURL,
		"Store":   a.Store.Path(),
	}).Render())

	return a.Run(cmd.Context())
}

// credsCmd groups credential store commands
var credsCmd = &cobra.Command{
	Use:   "creds",
	Short: "Inspect or edit the stored Wi-Fi credentials",
	Long: `Inspect or edit the credential store used by the agent.

The store is read once when the agent starts. Changes made here while the
agent is running take effect on its next start; to change the network of a
running agent use 'sensornode-pair'.`,
}

var credsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored network (the password is never printed)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		cs := credstore.Load(store)
		details := map[string]string{
			"Store":    store.Path(),
			"SSID":     orNone(cs.SSID),
			"Password": passwordState(cs.Password),
			"Keys":     orNone(strings.Join(store.Keys(), ", ")),
		}
		if !cs.Complete() {
			fmt.Println(ui.NewWarningResult("No complete credentials stored", details).Render())
			return nil
		}
		fmt.Println(ui.NewSuccessResult("Credentials stored", details).Render())
		return nil
	},
}

var credsSetCmd = &cobra.Command{
	Use:     "set <ssid> <password>",
	Short:   "Store credentials directly",
	Example: `  sensornode creds set Home secret123`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" || args[1] == "" {
			return errors.New("ssid and password must both be non-empty")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		if err := credstore.Save(store, credstore.CredentialSet{SSID: args[0], Password: args[1]}); err != nil {
			return err
		}

		fmt.Println(ui.NewSuccessResult("Credentials stored", map[string]string{
			"Store": store.Path(),
			"SSID":  args[0],
		}).Render())
		return nil
	},
}

var credsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		if !assumeYes && !ui.Confirm(os.Stdin, os.Stdout, "Clear stored credentials",
			[]string{
				"The agent will not rejoin " + orNone(credstore.Load(store).SSID) + " on its next start",
				"New credentials must be sent with sensornode-pair",
			}, "CLEAR") {
			fmt.Println("Aborted.")
			return nil
		}

		if err := credstore.Clear(store); err != nil {
			return err
		}
		fmt.Println(ui.NewSuccessResult("Credentials cleared", map[string]string{"Store": store.Path()}).Render())
		return nil
	},
}

func init() {
	credsClearCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
}

func openStore() (*credstore.FileStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	return credstore.OpenFileStore(path)
}

// configCmd groups configuration file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or show the agent configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			path = p
		}

		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Println(ui.NewSuccessResult("Configuration written", map[string]string{"Path": path}).Render())
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

// identityCmd prints the derived device name
var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Print the device name derived from the hardware address",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		id, err := identity.Resolve(cfg.Device.NamePrefix, cfg.Device.Interface, cfg.Device.HardwareAddr)
		if err != nil {
			fmt.Println(ui.NewFailureResult("No usable hardware address", err, []string{
				"Set device.interface to a network interface with a MAC address",
				"Or set device.hardware_addr explicitly",
			}).Render())
			return err
		}

		fmt.Println(ui.NewSuccessResult(id.Name, map[string]string{
			"Hardware address": id.HardwareAddr.String(),
			"Prefix":           cfg.Device.NamePrefix,
		}).Render())
		return nil
	},
}

// sensorCmd groups sensor commands
var sensorCmd = &cobra.Command{
	Use:   "sensor",
	Short: "Sensor source helpers",
}

var sensorPortsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports usable as sensor.port",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := sensor.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found.")
			return nil
		}

		r := ui.NewSuccessResult(fmt.Sprintf("Found %d serial port(s)", len(ports)), nil)
		for i, p := range ports {
			r.AddDetail(strconv.Itoa(i+1), p)
		}
		fmt.Println(r.Render())
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func passwordState(p string) string {
	if p == "" {
		return "(not set)"
	}
	return "(set, " + strconv.Itoa(len(p)) + " characters)"
}
