package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/sensornode/internal/clock"
	"github.com/muurk/sensornode/internal/credstore"
	"github.com/muurk/sensornode/internal/indicator"
	"github.com/muurk/sensornode/internal/logging"
	"github.com/muurk/sensornode/internal/netlink"
	"github.com/muurk/sensornode/internal/pairing"
	"github.com/muurk/sensornode/internal/sensor"
	"github.com/muurk/sensornode/internal/timesync"
	"github.com/muurk/sensornode/internal/uplink"
	"github.com/muurk/sensornode/internal/version"
)

const (
	// DefaultUplinkInterval is the reading cadence while connected.
	DefaultUplinkInterval = 5 * time.Second

	// DefaultBlinkInterval is the on and the off time of the attention blink.
	DefaultBlinkInterval = time.Second

	// DefaultIdlePoll is the loop period while disconnected and not blinking.
	DefaultIdlePoll = time.Second

	// DefaultReconnectHoldOff spaces idle reconnects when credentials survive
	// a failed join.
	DefaultReconnectHoldOff = 30 * time.Second
)

// Uplink reports readings and metadata. *uplink.Client implements it.
type Uplink interface {
	SendReading(value float64) error
	SendMetadata(description string) error
}

// Joiner joins a network with bounded retries. *netlink.Connector implements it.
type Joiner interface {
	Join(cs credstore.CredentialSet) netlink.Result
}

// Config holds the loop cadences and failure policy.
type Config struct {
	UplinkInterval time.Duration
	BlinkInterval  time.Duration
	IdlePoll       time.Duration

	// PurgeOnJoinFailure clears stored credentials when a join exhausts its
	// attempts.
	PurgeOnJoinFailure bool
	ReconnectHoldOff   time.Duration
}

// DefaultConfig returns the stock cadences with purge enabled.
func DefaultConfig() Config {
	return Config{
		UplinkInterval:     DefaultUplinkInterval,
		BlinkInterval:      DefaultBlinkInterval,
		IdlePoll:           DefaultIdlePoll,
		PurgeOnJoinFailure: true,
		ReconnectHoldOff:   DefaultReconnectHoldOff,
	}
}

// Deps are the collaborators driven by the controller. Store, Link and
// Uplink are required; the rest have usable defaults.
type Deps struct {
	Inbox     *pairing.Inbox
	Store     credstore.Store
	Link      netlink.Link
	Connector Joiner
	Syncer    timesync.Syncer
	Uplink    Uplink
	Sensor    sensor.Source
	Indicator indicator.Indicator
	Clock     clock.Clock
}

// Controller owns the connectivity state. Step and Run must be called from a
// single goroutine; Snapshot may be called from any.
type Controller struct {
	name string
	cfg  Config

	inbox     *pairing.Inbox
	store     credstore.Store
	link      netlink.Link
	connector Joiner
	syncer    timesync.Syncer
	uplink    Uplink
	sensor    sensor.Source
	indicator indicator.Indicator
	clock     clock.Clock

	// Loop-only state.
	events             []Event
	pendingDescription string
	metadataDue        bool
	uploaded           bool
	holdOffUntil       time.Time

	// Guarded by mu; read by Snapshot.
	mu                     sync.Mutex
	state                  State
	creds                  credstore.CredentialSet
	lastAppliedDescription string
	lastUpload             time.Time
	uploadsOK              int
	uploadsFailed          int
	joinAttempts           int
	joinFailures           int
}

// New returns a Controller for the device called name. The initial state is
// derived from the stored credentials.
func New(name string, d Deps, cfg Config) (*Controller, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("controller: credential store is required")
	case d.Link == nil:
		return nil, errors.New("controller: network link is required")
	case d.Uplink == nil:
		return nil, errors.New("controller: uplink is required")
	}

	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Inbox == nil {
		d.Inbox = pairing.NewInbox()
	}
	if d.Connector == nil {
		d.Connector = netlink.NewConnector(d.Link, d.Clock)
	}
	if d.Syncer == nil {
		d.Syncer = timesync.Local{Clock: d.Clock}
	}
	if d.Sensor == nil {
		d.Sensor = sensor.Fixed{Value: sensor.DefaultValue}
	}
	if d.Indicator == nil {
		d.Indicator = indicator.Nop{}
	}

	c := &Controller{
		name:      name,
		cfg:       cfg,
		inbox:     d.Inbox,
		store:     d.Store,
		link:      d.Link,
		connector: d.Connector,
		syncer:    d.Syncer,
		uplink:    d.Uplink,
		sensor:    d.Sensor,
		indicator: d.Indicator,
		clock:     d.Clock,
	}

	c.creds = credstore.Load(c.store)
	if c.creds.Complete() {
		c.state = StateDisconnected
	} else {
		c.state = StateAwaitingCredentials
	}
	return c, nil
}

// Inbox returns the inbox the pairing channel should deliver to.
func (c *Controller) Inbox() *pairing.Inbox {
	return c.inbox
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run calls Step until ctx is done. Cancellation is observed between
// iterations only.
func (c *Controller) Run(ctx context.Context) error {
	logging.Info("Control loop started",
		zap.String("device_name", c.name),
		zap.Stringer("state", c.State()))

	for {
		select {
		case <-ctx.Done():
			logging.Info("Control loop stopped", zap.Stringer("state", c.State()))
			return ctx.Err()
		default:
		}
		c.Step()
	}
}

// Step runs one poll iteration.
func (c *Controller) Step() {
	c.drainInbox()

	consumed := c.consumeEvents()
	if !consumed {
		c.applyDescription()
	}

	if c.link.Status() == netlink.StatusConnected {
		c.steadyState()
		return
	}

	if c.reconnect(consumed) {
		return
	}
	c.feedback()
}

func (c *Controller) drainInbox() {
	p, ok := c.inbox.Take()
	if !ok {
		return
	}
	if p.Forget {
		c.events = append(c.events, ForgetRequested{})
	}
	if p.Credentials != nil {
		c.events = append(c.events, CredentialsReceived{Credentials: *p.Credentials})
	}
	if p.Description != "" {
		c.pendingDescription = p.Description
	}
}

// consumeEvents applies every queued event in order and empties the queue.
// It reports whether anything was consumed.
func (c *Controller) consumeEvents() bool {
	if len(c.events) == 0 {
		return false
	}
	events := c.events
	c.events = nil

	for _, e := range events {
		logging.Debug("Consuming event", zap.String("event", eventName(e)))

		switch e := e.(type) {
		case ForgetRequested:
			if err := credstore.Clear(c.store); err != nil {
				logging.Error("Failed to clear stored credentials", zap.Error(err))
			}
			c.setCreds(credstore.CredentialSet{})
			if err := c.link.Disconnect(); err != nil {
				logging.Warn("Disconnect failed", zap.Error(err))
			}
			c.setState(StateAwaitingCredentials, "forget requested")

		case CredentialsReceived:
			c.setCreds(e.Credentials)
			c.setState(StateAwaitingCredentials, "credentials received")
			c.connect(e.Credentials)

		case ReconnectFailed:
			c.setState(StateAwaitingCredentials, "reconnect failed")
		}
	}
	return true
}

func (c *Controller) applyDescription() {
	if c.pendingDescription == "" {
		return
	}

	c.mu.Lock()
	changed := c.pendingDescription != c.lastAppliedDescription
	if changed {
		c.lastAppliedDescription = c.pendingDescription
	}
	c.mu.Unlock()

	if changed {
		c.metadataDue = true
		logging.Info("Description updated", zap.String("description", c.pendingDescription))
	}
	c.pendingDescription = ""
}

func (c *Controller) steadyState() {
	c.setState(StateConnected, "link up")
	c.indicator.SetColor(indicator.Green)

	if c.metadataDue {
		c.metadataDue = false
		c.mu.Lock()
		desc := c.lastAppliedDescription
		c.mu.Unlock()

		if err := c.uplink.SendMetadata(desc); err != nil {
			logging.Warn("Metadata upload failed", zap.String("reason", uplink.GetShortErrorMessage(err)))
		}
	}

	now := c.clock.Now()
	c.mu.Lock()
	last := c.lastUpload
	c.mu.Unlock()

	if !c.uploaded || now.Sub(last) >= c.cfg.UplinkInterval {
		c.upload(now)
		last = now
	}

	c.clock.Sleep(last.Add(c.cfg.UplinkInterval).Sub(c.clock.Now()))
}

func (c *Controller) upload(now time.Time) {
	c.uploaded = true

	ok := false
	v, err := c.sensor.Read()
	if err != nil {
		logging.Warn("Sensor read failed, skipping upload", zap.Error(err))
	} else if err := c.uplink.SendReading(v); err != nil {
		logging.Warn("Reading upload failed",
			zap.Float64("value", v),
			zap.String("reason", uplink.GetShortErrorMessage(err)))
	} else {
		ok = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUpload = now
	if ok {
		c.uploadsOK++
	} else {
		c.uploadsFailed++
	}
}

// reconnect handles the not-connected path: refresh credentials from the
// store and rejoin when nothing else happened this iteration. It reports
// whether the link was rejoined.
func (c *Controller) reconnect(consumed bool) bool {
	cs := credstore.Load(c.store)
	c.setCreds(cs)

	if !consumed && cs.Complete() && !c.clock.Now().Before(c.holdOffUntil) {
		c.setState(StateConnecting, "reconnecting with stored credentials")
		if c.connect(cs) {
			return true
		}
		c.events = append(c.events, ReconnectFailed{})
		return false
	}

	switch {
	case !cs.Complete():
		c.setState(StateAwaitingCredentials, "no stored credentials")
	case c.State() != StateAwaitingCredentials:
		c.setState(StateDisconnected, "link down")
	}
	return false
}

func (c *Controller) feedback() {
	c.mu.Lock()
	ssid := c.creds.SSID
	c.mu.Unlock()

	if len(c.events) > 0 || ssid == "" {
		c.indicator.SetColor(indicator.Red)
		c.clock.Sleep(c.cfg.BlinkInterval)
		c.indicator.SetColor(indicator.Off)
		c.clock.Sleep(c.cfg.BlinkInterval)
		return
	}

	c.indicator.SetColor(indicator.Off)
	c.clock.Sleep(c.cfg.IdlePoll)
}

// connect joins with cs and applies the outcome. It reports success.
func (c *Controller) connect(cs credstore.CredentialSet) bool {
	res := c.connector.Join(cs)

	c.mu.Lock()
	c.joinAttempts += res.Attempts
	if !res.Connected {
		c.joinFailures++
	}
	c.mu.Unlock()

	if res.Connected {
		if err := credstore.Save(c.store, cs); err != nil {
			logging.Error("Failed to persist credentials", zap.Error(err))
		}
		if err := c.syncer.Begin(); err != nil {
			logging.Warn("Time sync failed, using local clock", zap.Error(err))
		}
		c.holdOffUntil = time.Time{}
		c.uploaded = false
		c.setState(StateConnected, "joined "+cs.SSID)
		return true
	}

	if err := c.link.Disconnect(); err != nil {
		logging.Warn("Disconnect failed", zap.Error(err))
	}
	if c.cfg.PurgeOnJoinFailure {
		if err := credstore.Clear(c.store); err != nil {
			logging.Error("Failed to clear stored credentials", zap.Error(err))
		}
		logging.Warn("Stored credentials purged after failed join",
			zap.String("ssid", cs.SSID),
			zap.Int("attempts", res.Attempts))
	}
	c.holdOffUntil = c.clock.Now().Add(c.cfg.ReconnectHoldOff)
	c.setState(StateAwaitingCredentials, "join failed: "+res.Status.String())
	return false
}

func (c *Controller) setState(to State, reason string) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()

	if from != to {
		logging.LogTransition(from.String(), to.String(), reason)
	}
}

func (c *Controller) setCreds(cs credstore.CredentialSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = cs
}

// Snapshot returns the externally visible status. The password is never
// included.
func (c *Controller) Snapshot() pairing.DeviceStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := pairing.DeviceStatus{
		DeviceName:    c.name,
		Version:       version.Version,
		State:         c.state.String(),
		Connected:     c.state == StateConnected,
		SSID:          c.creds.SSID,
		Description:   c.lastAppliedDescription,
		UploadsOK:     c.uploadsOK,
		UploadsFailed: c.uploadsFailed,
		JoinAttempts:  c.joinAttempts,
		JoinFailures:  c.joinFailures,
	}
	if !c.lastUpload.IsZero() {
		t := c.lastUpload
		st.LastUpload = &t
	}
	return st
}
