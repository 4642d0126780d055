package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName         = "sensornode"
	configFile      = "config.yaml"
	credentialsFile = "credentials.yaml"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the agent.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/sensornode or $HOME/.config/sensornode
//   - macOS: $HOME/.config/sensornode (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\sensornode
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			// Fallback to USERPROFILE\AppData\Local if LOCALAPPDATA not set
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// DefaultStorePath returns the default location of the credential store.
func DefaultStorePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, credentialsFile), nil
}

// Load reads the configuration at path. An empty path means GetConfigPath().
// A missing file yields Default(). Fields absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d (expected 1)", cfg.Version)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to path (empty = GetConfigPath()).
// Performs an atomic write to prevent corruption on crash.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# sensornode agent configuration
#
# Durations use Go syntax (500ms, 3s, 1m).
# Wi-Fi credentials are NOT stored here; they live in the credential store
# (store.path) and are written by the agent after a successful join.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	return WriteFileAtomic(path, data, 0600)
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

// StorePath returns the configured credential store path, falling back to
// DefaultStorePath().
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	return DefaultStorePath()
}

// Validate checks the configuration for values the agent cannot run with.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"uplink.sensor_url":   c.Uplink.SensorURL,
		"uplink.metadata_url": c.Uplink.MetadataURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}

	t := c.Timing
	if t.UplinkInterval <= 0 || t.BlinkInterval <= 0 || t.JoinTimeout <= 0 || t.JoinPoll <= 0 || t.IdlePoll <= 0 {
		return fmt.Errorf("timing intervals must be positive")
	}
	if t.JoinPoll > t.JoinTimeout {
		return fmt.Errorf("timing.join_poll (%s) must not exceed timing.join_timeout (%s)", t.JoinPoll, t.JoinTimeout)
	}
	if t.JoinAttempts < 1 {
		return fmt.Errorf("timing.join_attempts must be at least 1, got %d", t.JoinAttempts)
	}

	switch c.Indicator.Mode {
	case IndicatorTerminal, IndicatorLog, IndicatorNone:
	default:
		return fmt.Errorf("unknown indicator.mode %q", c.Indicator.Mode)
	}

	switch c.Sensor.Source {
	case SensorFixed:
	case SensorSerial:
		if c.Sensor.Port == "" {
			return fmt.Errorf("sensor.port is required for the serial source")
		}
	default:
		return fmt.Errorf("unknown sensor.source %q", c.Sensor.Source)
	}

	if c.Network.Driver != DriverSim {
		return fmt.Errorf("unknown network.driver %q", c.Network.Driver)
	}

	return nil
}
