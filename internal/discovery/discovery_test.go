package discovery

import (
	"net"
	"strings"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantName string
		wantIP   string
		wantPort int
	}{
		{
			name: "agent with IPv4",
			entry: &zeroconf.ServiceEntry{
				HostName: "pi-garage.local.",
				Port:     8088,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.40")},
				Text:     []string{"device=ESP32_A1B2C3", "path=/pair", "version=v1.0.0"},
			},
			wantName: "ESP32_A1B2C3",
			wantIP:   "192.168.1.40",
			wantPort: 8088,
		},
		{
			name: "prefers IPv4 over IPv6",
			entry: &zeroconf.ServiceEntry{
				HostName: "pi.local.",
				Port:     8088,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.7")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::7")},
				Text:     []string{"device=ESP32_000007"},
			},
			wantName: "ESP32_000007",
			wantIP:   "10.0.0.7",
			wantPort: 8088,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "pi.local.",
				Port:     9000,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
				Text:     []string{"device=ESP32_000001"},
			},
			wantName: "ESP32_000001",
			wantIP:   "fe80::1",
			wantPort: 9000,
		},
		{
			name: "missing device record",
			entry: &zeroconf.ServiceEntry{
				HostName: "printer.local.",
				Port:     8088,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.9")},
				Text:     []string{"path=/pair"},
			},
			wantNil: true,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				HostName: "pi.local.",
				Port:     8088,
				Text:     []string{"device=ESP32_A1B2C3"},
			},
			wantNil: true,
		},
		{
			name: "no port",
			entry: &zeroconf.ServiceEntry{
				HostName: "pi.local.",
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.40")},
				Text:     []string{"device=ESP32_A1B2C3"},
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if agent != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", agent)
				}
				return
			}
			if agent == nil {
				t.Fatal("parseServiceEntry() = nil, want agent")
			}
			if agent.Name != tt.wantName {
				t.Errorf("Name = %s, want %s", agent.Name, tt.wantName)
			}
			if agent.IP != tt.wantIP {
				t.Errorf("IP = %s, want %s", agent.IP, tt.wantIP)
			}
			if agent.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", agent.Port, tt.wantPort)
			}
		})
	}
}

func TestParseTXT(t *testing.T) {
	got := parseTXT([]string{"device=ESP32_A1B2C3", "path=/pair", "flag", "eq=a=b"})

	want := map[string]string{
		"device": "ESP32_A1B2C3",
		"path":   "/pair",
		"flag":   "",
		"eq":     "a=b",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("parseTXT()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestAgentAddresses(t *testing.T) {
	v4 := &Agent{Name: "ESP32_A1B2C3", Hostname: "pi.local.", IP: "192.168.1.40", Port: 8088}
	if got := v4.BaseURL(); got != "http://192.168.1.40:8088" {
		t.Errorf("BaseURL() = %s", got)
	}
	if !strings.Contains(v4.String(), "ESP32_A1B2C3") {
		t.Errorf("String() = %s", v4.String())
	}

	v6 := &Agent{IP: "fe80::1", Port: 8088}
	if got := v6.BaseURL(); got != "http://[fe80::1]:8088" {
		t.Errorf("BaseURL() = %s", got)
	}

	if got := v6.GetMetadata("device"); got != "" {
		t.Errorf("GetMetadata() on nil metadata = %q", got)
	}
}

func TestAdvertiserTXTRoundTrip(t *testing.T) {
	adv := NewAdvertiser("ESP32_A1B2C3", 8088, "/pair", "v1.0.0")

	entry := &zeroconf.ServiceEntry{
		HostName: "pi.local.",
		Port:     adv.Port,
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.40")},
		Text:     adv.TXT(),
	}

	agent := parseServiceEntry(entry)
	if agent == nil {
		t.Fatal("advertised TXT records should parse as an agent")
	}
	if agent.Name != "ESP32_A1B2C3" || agent.GetMetadata(TxtPath) != "/pair" || agent.GetMetadata(TxtVersion) != "v1.0.0" {
		t.Errorf("agent = %+v", agent)
	}
}

func TestAdvertiserStopWithoutStart(t *testing.T) {
	adv := NewAdvertiser("ESP32_A1B2C3", 8088, "/pair", "dev")
	adv.Stop()
}
