package netlink

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/sensornode/internal/clock"
	"github.com/muurk/sensornode/internal/credstore"
	"github.com/muurk/sensornode/internal/logging"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSimLinkStatus(t *testing.T) {
	clk := clock.NewManual(epoch)
	link := NewSimLink(clk, Network{SSID: "Home", Password: "secret123", JoinDelay: time.Second})

	if got := link.Status(); got != StatusIdle {
		t.Errorf("Status() before Begin = %v, want idle", got)
	}

	if err := link.Begin("Home", "secret123"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if got := link.Status(); got != StatusIdle {
		t.Errorf("Status() before join delay = %v, want idle", got)
	}

	clk.Advance(time.Second)
	if got := link.Status(); got != StatusConnected {
		t.Errorf("Status() after join delay = %v, want connected", got)
	}

	link.Drop()
	if got := link.Status(); got != StatusDisconnected {
		t.Errorf("Status() after Drop() = %v, want disconnected", got)
	}
}

func TestSimLinkFailures(t *testing.T) {
	clk := clock.NewManual(epoch)
	link := NewSimLink(clk, Network{SSID: "Home", Password: "secret123"})

	tests := []struct {
		name     string
		ssid     string
		password string
		want     Status
	}{
		{"wrong password", "Home", "nope", StatusConnectFailed},
		{"unknown ssid", "Cafe", "secret123", StatusNoSSID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := link.Begin(tt.ssid, tt.password); err != nil {
				t.Fatalf("Begin() error = %v", err)
			}
			clk.Advance(time.Minute)
			if got := link.Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}

	if err := link.Begin("", ""); err != ErrEmptySSID {
		t.Errorf("Begin(\"\") error = %v, want ErrEmptySSID", err)
	}
}

func TestSimLinkRemoveNetworkDrops(t *testing.T) {
	clk := clock.NewManual(epoch)
	link := NewSimLink(clk, Network{SSID: "Home", Password: "secret123"})

	_ = link.Begin("Home", "secret123")
	if link.Status() != StatusConnected {
		t.Fatal("expected immediate association with zero join delay")
	}

	link.RemoveNetwork("Home")
	if got := link.Status(); got != StatusDisconnected {
		t.Errorf("Status() after RemoveNetwork() = %v, want disconnected", got)
	}
}

func TestConnectorJoinSucceedsWithinFirstAttempt(t *testing.T) {
	clk := clock.NewManual(epoch)
	link := NewSimLink(clk, Network{SSID: "Home", Password: "secret123", JoinDelay: time.Second})
	conn := NewConnector(link, clk)

	res := conn.Join(credstore.CredentialSet{SSID: "Home", Password: "secret123"})

	if !res.Connected {
		t.Fatalf("Join() = %+v, want connected", res)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
	if res.Elapsed != time.Second {
		t.Errorf("Elapsed = %v, want 1s (two 500ms polls)", res.Elapsed)
	}
	if link.Disconnects() != 1 || link.Begins() != 1 {
		t.Errorf("disconnects=%d begins=%d, want 1 each", link.Disconnects(), link.Begins())
	}
}

// flakyLink fails to associate on its first Begin and connects on later ones.
type flakyLink struct {
	begins int
}

func (f *flakyLink) Begin(ssid, password string) error {
	f.begins++
	return nil
}

func (f *flakyLink) Disconnect() error { return nil }

func (f *flakyLink) Status() Status {
	if f.begins < 2 {
		return StatusIdle
	}
	return StatusConnected
}

// stuckLink connects on Begin but always fails to tear down.
type stuckLink struct{}

func (stuckLink) Begin(ssid, password string) error { return nil }
func (stuckLink) Disconnect() error { return errors.New("radio busy") }
func (stuckLink) Status() Status { return StatusConnected }

func TestConnectorLogsDisconnectFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(zap.NewNop()) })

	conn := NewConnector(stuckLink{}, clock.NewManual(epoch))
	res := conn.Join(credstore.CredentialSet{SSID: "Home", Password: "secret123"})

	if !res.Connected || res.Attempts != 1 {
		t.Fatalf("Join() = %+v, want connected on the first attempt", res)
	}
	entries := logs.FilterMessage("Disconnect before join attempt failed").All()
	if len(entries) != 1 {
		t.Fatalf("got %d disconnect entries, want 1", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel || entries[0].ContextMap()["error"] != "radio busy" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestConnectorJoinSucceedsOnSecondAttempt(t *testing.T) {
	clk := clock.NewManual(epoch)
	link := &flakyLink{}
	conn := NewConnector(link, clk)

	res := conn.Join(credstore.CredentialSet{SSID: "Home", Password: "secret123"})

	if !res.Connected {
		t.Fatalf("Join() = %+v, want connected", res)
	}
	if res.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", res.Attempts)
	}
	if res.Elapsed != DefaultTimeout {
		t.Errorf("Elapsed = %v, want %v (one timed-out attempt)", res.Elapsed, DefaultTimeout)
	}
}

func TestConnectorJoinBoundedFailure(t *testing.T) {
	tests := []struct {
		name     string
		ssid     string
		password string
		want     Status
	}{
		{"wrong password", "Home", "wrong", StatusConnectFailed},
		{"unknown network", "Elsewhere", "secret123", StatusNoSSID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewManual(epoch)
			link := NewSimLink(clk, Network{SSID: "Home", Password: "secret123"})
			conn := NewConnector(link, clk)

			res := conn.Join(credstore.CredentialSet{SSID: tt.ssid, Password: tt.password})

			if res.Connected {
				t.Fatal("Join() should fail")
			}
			if res.Attempts != DefaultMaxAttempts {
				t.Errorf("Attempts = %d, want %d", res.Attempts, DefaultMaxAttempts)
			}
			if res.Status != tt.want {
				t.Errorf("Status = %v, want %v", res.Status, tt.want)
			}
			bound := time.Duration(DefaultMaxAttempts) * (DefaultTimeout + DefaultPollInterval)
			if res.Elapsed > bound {
				t.Errorf("Elapsed = %v, exceeds bound %v", res.Elapsed, bound)
			}
			if res.Elapsed != 6*time.Second {
				t.Errorf("Elapsed = %v, want 6s (two full 3s attempts)", res.Elapsed)
			}
			if link.Begins() != DefaultMaxAttempts {
				t.Errorf("Begins() = %d, want %d", link.Begins(), DefaultMaxAttempts)
			}
		})
	}
}

func TestConnectorJoinAlwaysAttemptsWhenConnected(t *testing.T) {
	clk := clock.NewManual(epoch)
	link := NewSimLink(clk,
		Network{SSID: "Home", Password: "secret123"},
		Network{SSID: "Office", Password: "hunter22"},
	)
	conn := NewConnector(link, clk)

	if res := conn.Join(credstore.CredentialSet{SSID: "Home", Password: "secret123"}); !res.Connected {
		t.Fatal("first Join() should succeed")
	}

	res := conn.Join(credstore.CredentialSet{SSID: "Office", Password: "hunter22"})
	if !res.Connected {
		t.Fatal("second Join() should succeed")
	}
	if link.SSID() != "Office" {
		t.Errorf("SSID() = %q, want Office", link.SSID())
	}
	if link.Begins() != 2 {
		t.Errorf("Begins() = %d, want 2", link.Begins())
	}
}
