package config

import "time"

// Config is the agent configuration file.
type Config struct {
	Version   int             `yaml:"version"`
	LogLevel  string          `yaml:"log_level,omitempty"` // debug, info, warn, error
	Device    DeviceConfig    `yaml:"device"`
	Uplink    UplinkConfig    `yaml:"uplink"`
	Pairing   PairingConfig   `yaml:"pairing"`
	Store     StoreConfig     `yaml:"store"`
	Network   NetworkConfig   `yaml:"network"`
	Timing    TimingConfig    `yaml:"timing"`
	Policy    PolicyConfig    `yaml:"policy"`
	Sensor    SensorConfig    `yaml:"sensor"`
	TimeSync  TimeSyncConfig  `yaml:"time_sync"`
	Indicator IndicatorConfig `yaml:"indicator"`
}

// DeviceConfig controls how the device identity is derived.
type DeviceConfig struct {
	NamePrefix   string `yaml:"name_prefix"`             // Prefix of device_name (e.g., "ESP32_")
	Interface    string `yaml:"interface,omitempty"`     // Network interface to read the MAC from (empty = first usable)
	HardwareAddr string `yaml:"hardware_addr,omitempty"` // Fixed MAC, overrides interface lookup
}

// UplinkConfig holds the fixed reporting endpoints.
type UplinkConfig struct {
	SensorURL   string        `yaml:"sensor_url"`
	MetadataURL string        `yaml:"metadata_url"`
	SensorKey   string        `yaml:"sensor_key"` // "key" field of the single data entry
	Timeout     time.Duration `yaml:"timeout"`
}

// PairingConfig controls the pairing listener and its mDNS advertisement.
type PairingConfig struct {
	Listen    string `yaml:"listen"`    // host:port for /pair and /status
	Advertise bool   `yaml:"advertise"` // register _sensornode._tcp via mDNS
}

// StoreConfig locates the persisted credential file.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // empty = <config dir>/credentials.yaml
}

// NetworkConfig selects and configures the network link.
type NetworkConfig struct {
	Driver   string       `yaml:"driver"` // only "sim" is built in
	Networks []SimNetwork `yaml:"networks,omitempty"`
}

// SimNetwork is a network the simulated link can join.
type SimNetwork struct {
	SSID      string        `yaml:"ssid"`
	Password  string        `yaml:"password"`
	JoinDelay time.Duration `yaml:"join_delay"`
}

// TimingConfig holds the externally observable cadences of the control loop.
type TimingConfig struct {
	UplinkInterval time.Duration `yaml:"uplink_interval"`
	BlinkInterval  time.Duration `yaml:"blink_interval"`
	JoinTimeout    time.Duration `yaml:"join_timeout"`
	JoinPoll       time.Duration `yaml:"join_poll"`
	JoinAttempts   int           `yaml:"join_attempts"`
	IdlePoll       time.Duration `yaml:"idle_poll"`
}

// PolicyConfig holds failure-handling choices.
type PolicyConfig struct {
	// PurgeOnJoinFailure clears persisted credentials once all join attempts fail.
	// This treats an unreachable network the same as a wrong password.
	PurgeOnJoinFailure bool `yaml:"purge_on_join_failure"`

	// ReconnectHoldOff paces idle reconnects when credentials are kept after a failure.
	ReconnectHoldOff time.Duration `yaml:"reconnect_hold_off"`
}

// SensorConfig selects the reading source.
type SensorConfig struct {
	Source   string  `yaml:"source"` // "fixed" or "serial"
	Value    float64 `yaml:"value"`  // reading reported by the fixed source
	Port     string  `yaml:"port,omitempty"`
	BaudRate int     `yaml:"baud_rate,omitempty"`
}

// TimeSyncConfig configures the NTP offset used to stamp payloads.
type TimeSyncConfig struct {
	Enabled bool          `yaml:"enabled"`
	Server  string        `yaml:"server"`
	Timeout time.Duration `yaml:"timeout"`
}

// IndicatorConfig selects how connectivity status is rendered.
type IndicatorConfig struct {
	Mode       string `yaml:"mode"`       // "terminal", "log" or "none"
	Brightness uint8  `yaml:"brightness"` // 0-255, scales rendered colour
}

// Indicator modes
const (
	IndicatorTerminal = "terminal"
	IndicatorLog      = "log"
	IndicatorNone     = "none"
)

// Sensor sources
const (
	SensorFixed  = "fixed"
	SensorSerial = "serial"
)

// DriverSim is the simulated network link.
const DriverSim = "sim"

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Version:  1,
		LogLevel: "info",
		Device: DeviceConfig{
			NamePrefix: "ESP32_",
		},
		Uplink: UplinkConfig{
			SensorURL:   "http://192.168.3.23/api/sensor_data",
			MetadataURL: "http://192.168.3.23/api/metadata",
			SensorKey:   "key",
			Timeout:     10 * time.Second,
		},
		Pairing: PairingConfig{
			Listen:    ":8088",
			Advertise: true,
		},
		Network: NetworkConfig{
			Driver: DriverSim,
		},
		Timing: TimingConfig{
			UplinkInterval: 5 * time.Second,
			BlinkInterval:  1 * time.Second,
			JoinTimeout:    3 * time.Second,
			JoinPoll:       500 * time.Millisecond,
			JoinAttempts:   2,
			IdlePoll:       1 * time.Second,
		},
		Policy: PolicyConfig{
			PurgeOnJoinFailure: true,
			ReconnectHoldOff:   30 * time.Second,
		},
		Sensor: SensorConfig{
			Source:   SensorFixed,
			Value:    10.0,
			BaudRate: 115200,
		},
		TimeSync: TimeSyncConfig{
			Enabled: true,
			Server:  "pool.ntp.org",
			Timeout: 5 * time.Second,
		},
		Indicator: IndicatorConfig{
			Mode:       IndicatorTerminal,
			Brightness: 15,
		},
	}
}
