// Package config provides the agent configuration for sensornode.
//
// The configuration is a YAML file holding the uplink endpoints, the pairing
// listener, the loop cadences, and the collaborator choices (sensor source,
// indicator mode, network driver). It follows OS-specific conventions for its
// location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/sensornode/config.yaml or $HOME/.config/sensornode/config.yaml
//   - macOS: $HOME/.config/sensornode/config.yaml
//   - Windows: %LOCALAPPDATA%\sensornode\config.yaml
//
// The credential store defaults to credentials.yaml in the same directory.
//
// # Defaults
//
// Load starts from Default() and overlays the file, so a file only needs the
// keys it changes:
//
//	version: 1
//	uplink:
//	  sensor_url: http://10.0.0.2/api/sensor_data
//	  metadata_url: http://10.0.0.2/api/metadata
//	network:
//	  networks:
//	    - ssid: Home
//	      password: secret123
//	      join_delay: 1s
//
// # Security
//
// Wi-Fi credentials are never written to config.yaml. The simulated network
// list is the only place a password appears, and it describes the networks
// the simulated radio can see, not the device's own credentials.
package config
