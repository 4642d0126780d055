// Package timesync provides the wall-clock time used to stamp uplink payloads.
package timesync

import (
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"go.uber.org/zap"

	"github.com/muurk/sensornode/internal/clock"
	"github.com/muurk/sensornode/internal/logging"
)

// Syncer is a time source that can be (re)synchronized after joining a network.
type Syncer interface {
	Begin() error
	Now() time.Time
}

// Local returns the clock's time unchanged.
type Local struct {
	Clock clock.Clock
}

// Begin is a no-op.
func (Local) Begin() error { return nil }

// Now returns the clock's current time.
func (l Local) Now() time.Time { return l.Clock.Now() }

// QueryFunc performs one NTP query. It matches ntp.QueryWithOptions.
type QueryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

// NTP offsets the clock by the offset measured against an NTP server.
type NTP struct {
	Server  string
	Timeout time.Duration
	Clock   clock.Clock

	query QueryFunc

	mu     sync.RWMutex
	offset time.Duration
	synced bool
}

// NewNTP returns an NTP syncer for server.
func NewNTP(server string, timeout time.Duration, clk clock.Clock) *NTP {
	return &NTP{
		Server:  server,
		Timeout: timeout,
		Clock:   clk,
		query:   ntp.QueryWithOptions,
	}
}

// Begin queries the server and stores the clock offset. On failure the
// previous offset is kept.
func (n *NTP) Begin() error {
	resp, err := n.query(n.Server, ntp.QueryOptions{Timeout: n.Timeout})
	if err != nil {
		return fmt.Errorf("ntp query to %s failed: %w", n.Server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("invalid ntp response from %s: %w", n.Server, err)
	}

	n.mu.Lock()
	n.offset = resp.ClockOffset
	n.synced = true
	n.mu.Unlock()

	logging.Debug("Time synchronized",
		zap.String("server", n.Server),
		zap.Duration("offset", resp.ClockOffset),
		zap.Uint8("stratum", resp.Stratum))
	return nil
}

// Now returns the clock's time corrected by the last measured offset.
func (n *NTP) Now() time.Time {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.Clock.Now().Add(n.offset)
}

// Synced reports whether Begin has succeeded at least once.
func (n *NTP) Synced() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.synced
}
