package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Agent is a sensornode agent found on the local network
type Agent struct {
	// Name is the device name (e.g., "ESP32_A1B2C3")
	Name string

	// Hostname is the mDNS hostname of the machine running the agent
	Hostname string

	// IP is the preferred address (IPv4 when available)
	IP string

	// Port is the pairing server port
	Port int

	// Metadata contains the TXT record data ("device", "path", "version")
	Metadata map[string]string

	// DiscoveredAt is when the agent was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the agent
func (a *Agent) String() string {
	return fmt.Sprintf("%s (%s) at %s", a.Name, a.Hostname, net.JoinHostPort(a.IP, strconv.Itoa(a.Port)))
}

// BaseURL returns the pairing base URL for the agent
func (a *Agent) BaseURL() string {
	return "http://" + net.JoinHostPort(a.IP, strconv.Itoa(a.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (a *Agent) GetMetadata(key string) string {
	if a.Metadata == nil {
		return ""
	}
	return a.Metadata[key]
}
