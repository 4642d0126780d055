// Package discovery advertises and finds sensornode pairing channels using
// multicast DNS.
//
// An agent registers itself as a "_sensornode._tcp" service in the "local."
// domain. The instance name is the device name, and the TXT records carry:
//
//	device=ESP32_A1B2C3   device name (required for an entry to be listed)
//	path=/pair            pairing path on the advertised port
//	version=v1.0.0        agent version
//
// # Usage Example
//
//	agents, err := discovery.NewScanner().ScanForAgents(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, a := range agents {
//	    fmt.Printf("Found: %s at %s\n", a.Name, a.BaseURL())
//	}
//
// Scanning needs multicast to reach the agent's network segment. When it
// doesn't (VPNs, some Wi-Fi isolation modes), address the agent directly.
package discovery
