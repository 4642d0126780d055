package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type of the pairing channel
	ServiceType = "_sensornode._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for agent discovery
	DefaultScanTimeout = 5 * time.Second

	// TXT record keys
	TxtDevice  = "device"
	TxtPath    = "path"
	TxtVersion = "version"
)

// Scanner handles mDNS agent discovery
type Scanner struct {
	// Timeout is the maximum time to wait for agent discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForAgents browses for agents until the timeout or ctx ends
func (s *Scanner) ScanForAgents(ctx context.Context) ([]*Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var (
		mu     sync.Mutex
		agents []*Agent
		seen   = make(map[string]bool)
		done   = make(chan struct{})
	)
	go func() {
		defer close(done)
		for entry := range entries {
			agent := parseServiceEntry(entry)
			if agent == nil {
				continue
			}
			mu.Lock()
			if !seen[agent.Name] {
				seen[agent.Name] = true
				agents = append(agents, agent)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	// The resolver closes entries once ctx is done
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Agent(nil), agents...), nil
}

// WaitForAgent waits for the agent with the given device name
func (s *Scanner) WaitForAgent(ctx context.Context, name string) (*Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Agent, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			agent := parseServiceEntry(entry)
			if agent != nil && strings.EqualFold(agent.Name, name) {
				select {
				case found <- agent:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case agent := <-found:
		return agent, nil
	case <-ctx.Done():
		select {
		case agent := <-found:
			return agent, nil
		default:
		}
		return nil, fmt.Errorf("agent %s not found within %s", name, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to an Agent
// Returns nil if the entry does not describe a sensornode agent
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Agent {
	metadata := parseTXT(entry.Text)

	name := metadata[TxtDevice]
	if name == "" {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	return &Agent{
		Name:         name,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// parseTXT splits "key=value" TXT records. A key without "=" maps to "".
func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}

// QuickScan performs a fast scan with a 3-second timeout
func QuickScan(ctx context.Context) ([]*Agent, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.ScanForAgents(ctx)
}
