package netlink

import (
	"time"

	"go.uber.org/zap"

	"github.com/muurk/sensornode/internal/clock"
	"github.com/muurk/sensornode/internal/credstore"
	"github.com/muurk/sensornode/internal/logging"
)

const (
	// DefaultMaxAttempts is the number of association attempts per join.
	DefaultMaxAttempts = 2

	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 3 * time.Second

	// DefaultPollInterval is the status poll period during an attempt.
	DefaultPollInterval = 500 * time.Millisecond
)

// Result describes the outcome of Connector.Join.
type Result struct {
	Connected bool
	Attempts  int
	Elapsed   time.Duration
	Status    Status // last status observed
}

// Connector joins a Link with bounded retries.
type Connector struct {
	Link         Link
	Clock        clock.Clock
	MaxAttempts  int
	Timeout      time.Duration
	PollInterval time.Duration
}

// NewConnector returns a Connector with the default retry policy.
func NewConnector(link Link, clk clock.Clock) *Connector {
	return &Connector{
		Link:         link,
		Clock:        clk,
		MaxAttempts:  DefaultMaxAttempts,
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
	}
}

// Join associates with cs.SSID. Each attempt disconnects, begins, and polls
// until connected or until Timeout has elapsed since the attempt began. Join
// always makes at least one attempt, even if the link is already connected.
func (c *Connector) Join(cs credstore.CredentialSet) Result {
	start := c.Clock.Now()
	var res Result

	for res.Attempts < c.MaxAttempts {
		res.Attempts++

		if err := c.Link.Disconnect(); err != nil {
			logging.Debug("Disconnect before join attempt failed",
				zap.String("ssid", cs.SSID),
				zap.Int("attempt", res.Attempts),
				zap.Error(err))
		}
		if err := c.Link.Begin(cs.SSID, cs.Password); err != nil {
			logging.Warn("Join attempt could not start",
				zap.String("ssid", cs.SSID),
				zap.Int("attempt", res.Attempts),
				zap.Error(err))
			continue
		}

		attemptStart := c.Clock.Now()
		for {
			res.Status = c.Link.Status()
			if res.Status == StatusConnected {
				res.Connected = true
				res.Elapsed = clock.Since(c.Clock, start)
				logging.Info("Joined network",
					zap.String("ssid", cs.SSID),
					zap.Int("attempts", res.Attempts),
					zap.Duration("elapsed", res.Elapsed))
				return res
			}
			if clock.Since(c.Clock, attemptStart) >= c.Timeout {
				break
			}
			c.Clock.Sleep(c.PollInterval)
		}

		logging.Debug("Join attempt timed out",
			zap.String("ssid", cs.SSID),
			zap.Int("attempt", res.Attempts),
			zap.Stringer("status", res.Status))
	}

	res.Elapsed = clock.Since(c.Clock, start)
	logging.Warn("Failed to join network",
		zap.String("ssid", cs.SSID),
		zap.Int("attempts", res.Attempts),
		zap.Stringer("status", res.Status),
		zap.Duration("elapsed", res.Elapsed))
	return res
}
