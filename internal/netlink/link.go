// Package netlink joins the device to a Wi-Fi network.
//
// A Link is the radio: it can be told to begin associating, to disconnect,
// and can be polled for status. The Connector wraps a Link with the bounded
// retry policy used by the control loop.
package netlink

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/muurk/sensornode/internal/clock"
)

// Status is the association state reported by a Link.
type Status int

const (
	StatusIdle Status = iota
	StatusConnected
	StatusConnectFailed
	StatusNoSSID
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnected:
		return "connected"
	case StatusConnectFailed:
		return "connect_failed"
	case StatusNoSSID:
		return "no_ssid"
	case StatusDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Link is a network interface that can be associated with one network.
type Link interface {
	Begin(ssid, password string) error
	Disconnect() error
	Status() Status
}

// ErrEmptySSID is returned by Begin when no SSID is given.
var ErrEmptySSID = errors.New("ssid is empty")

// Network is a network visible to a SimLink.
type Network struct {
	SSID      string
	Password  string
	JoinDelay time.Duration
}

// SimLink is an in-process radio. Association completes once the network's
// join delay has elapsed on the link's clock, provided the password matches.
type SimLink struct {
	mu       sync.Mutex
	clk      clock.Clock
	networks map[string]Network

	ssid     string
	password string
	began    time.Time
	active   bool
	dropped  bool

	begins      int
	disconnects int
}

// NewSimLink returns a SimLink that can see the given networks.
func NewSimLink(clk clock.Clock, networks ...Network) *SimLink {
	l := &SimLink{
		clk:      clk,
		networks: make(map[string]Network),
	}
	for _, n := range networks {
		l.networks[n.SSID] = n
	}
	return l
}

// SetNetwork adds or replaces a visible network.
func (l *SimLink) SetNetwork(n Network) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.networks[n.SSID] = n
}

// RemoveNetwork makes a network invisible. A link associated with it drops.
// It exists for tests and scripted simulations.
func (l *SimLink) RemoveNetwork(ssid string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.networks, ssid)
	if l.active && l.ssid == ssid {
		l.dropped = true
	}
}

// Begin starts associating with ssid.
func (l *SimLink) Begin(ssid, password string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.begins++
	if ssid == "" {
		l.active = false
		return ErrEmptySSID
	}

	l.ssid = ssid
	l.password = password
	l.began = l.clk.Now()
	l.active = true
	l.dropped = false
	return nil
}

// Disconnect drops any association.
func (l *SimLink) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.disconnects++
	if l.active {
		l.dropped = true
	}
	l.active = false
	return nil
}

// Drop simulates loss of association, e.g. the access point going away.
// It exists for tests and scripted simulations.
func (l *SimLink) Drop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		l.dropped = true
	}
}

// Status reports the association state for the last Begin.
func (l *SimLink) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active || l.dropped {
		if l.dropped {
			return StatusDisconnected
		}
		return StatusIdle
	}

	n, ok := l.networks[l.ssid]
	if !ok {
		return StatusNoSSID
	}
	if n.Password != l.password {
		return StatusConnectFailed
	}
	if l.clk.Now().Sub(l.began) < n.JoinDelay {
		return StatusIdle
	}
	return StatusConnected
}

// SSID returns the network the link was last told to join.
func (l *SimLink) SSID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ssid
}

// Begins returns the number of Begin calls.
func (l *SimLink) Begins() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.begins
}

// Disconnects returns the number of Disconnect calls.
func (l *SimLink) Disconnects() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disconnects
}
