// Package identity derives the device name reported in every uplink payload.
package identity

import (
	"errors"
	"fmt"
	"net"
)

// DefaultPrefix is the name prefix used by the reference hardware.
const DefaultPrefix = "ESP32_"

// ErrNoHardwareAddr is returned when no interface with a usable MAC is found.
var ErrNoHardwareAddr = errors.New("no usable hardware address found")

// Identity is the device's stable name and the address it was derived from.
type Identity struct {
	Name         string
	HardwareAddr net.HardwareAddr
}

// FromHardwareAddr builds the identity from the last three bytes of a
// six-byte MAC, rendered as uppercase hex: prefix + "%02X%02X%02X".
func FromHardwareAddr(prefix string, mac net.HardwareAddr) (Identity, error) {
	if len(mac) < 6 {
		return Identity{}, fmt.Errorf("hardware address %q too short: %w", mac.String(), ErrNoHardwareAddr)
	}
	return Identity{
		Name:         fmt.Sprintf("%s%02X%02X%02X", prefix, mac[3], mac[4], mac[5]),
		HardwareAddr: mac,
	}, nil
}

// Parse builds the identity from a textual MAC such as "24:6f:28:a1:b2:c3".
func Parse(prefix, addr string) (Identity, error) {
	mac, err := net.ParseMAC(addr)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid hardware address %q: %w", addr, err)
	}
	return FromHardwareAddr(prefix, mac)
}

// Detect derives the identity from a local interface. When ifaceName is empty
// the first non-loopback interface with a six-byte MAC is used.
func Detect(prefix, ifaceName string) (Identity, error) {
	if ifaceName != "" {
		iface, err := net.InterfaceByName(ifaceName)
		if err != nil {
			return Identity{}, fmt.Errorf("failed to look up interface %s: %w", ifaceName, err)
		}
		return FromHardwareAddr(prefix, iface.HardwareAddr)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return Identity{}, fmt.Errorf("failed to list interfaces: %w", err)
	}
	return pick(prefix, ifaces)
}

func pick(prefix string, ifaces []net.Interface) (Identity, error) {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) != 6 {
			continue
		}
		return FromHardwareAddr(prefix, iface.HardwareAddr)
	}
	return Identity{}, ErrNoHardwareAddr
}

// Resolve applies the configured override, falling back to Detect.
func Resolve(prefix, ifaceName, override string) (Identity, error) {
	if override != "" {
		return Parse(prefix, override)
	}
	return Detect(prefix, ifaceName)
}
