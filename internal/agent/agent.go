// Package agent assembles a sensornode agent from its configuration and runs
// it: the pairing server, its mDNS advertisement and the control loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/sensornode/internal/clock"
	"github.com/muurk/sensornode/internal/config"
	"github.com/muurk/sensornode/internal/controller"
	"github.com/muurk/sensornode/internal/credstore"
	"github.com/muurk/sensornode/internal/discovery"
	"github.com/muurk/sensornode/internal/identity"
	"github.com/muurk/sensornode/internal/indicator"
	"github.com/muurk/sensornode/internal/logging"
	"github.com/muurk/sensornode/internal/netlink"
	"github.com/muurk/sensornode/internal/pairing"
	"github.com/muurk/sensornode/internal/sensor"
	"github.com/muurk/sensornode/internal/timesync"
	"github.com/muurk/sensornode/internal/uplink"
	"github.com/muurk/sensornode/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Agent is a fully wired sensornode.
type Agent struct {
	cfg *config.Config

	Identity   identity.Identity
	Store      *credstore.FileStore
	Link       *netlink.SimLink
	Controller *controller.Controller
	Server     *pairing.Server

	advertiser *discovery.Advertiser
	closers    []io.Closer
}

// New builds every collaborator described by cfg. Any failure here is fatal
// to the agent.
func New(cfg *config.Config) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	id, err := identity.Resolve(cfg.Device.NamePrefix, cfg.Device.Interface, cfg.Device.HardwareAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to derive device identity: %w", err)
	}

	storePath, err := cfg.StorePath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate credential store: %w", err)
	}
	store, err := credstore.OpenFileStore(storePath)
	if err != nil {
		return nil, err
	}

	clk := clock.Real{}
	link := NewLink(cfg, clk)

	connector := netlink.NewConnector(link, clk)
	connector.MaxAttempts = cfg.Timing.JoinAttempts
	connector.Timeout = cfg.Timing.JoinTimeout
	connector.PollInterval = cfg.Timing.JoinPoll

	syncer := NewSyncer(cfg, clk)

	client := uplink.NewClient(cfg.Uplink.SensorURL, cfg.Uplink.MetadataURL, id.Name, syncer.Now)
	client.SensorKey = cfg.Uplink.SensorKey
	client.SetTimeout(cfg.Uplink.Timeout)

	src, err := NewSensor(cfg)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:      cfg,
		Identity: id,
		Store:    store,
		Link:     link,
	}
	if c, ok := src.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	inbox := pairing.NewInbox()
	a.Controller, err = controller.New(id.Name, controller.Deps{
		Inbox:     inbox,
		Store:     store,
		Link:      link,
		Connector: connector,
		Syncer:    syncer,
		Uplink:    client,
		Sensor:    src,
		Indicator: NewIndicator(cfg, os.Stdout),
		Clock:     clk,
	}, controller.Config{
		UplinkInterval:     cfg.Timing.UplinkInterval,
		BlinkInterval:      cfg.Timing.BlinkInterval,
		IdlePoll:           cfg.Timing.IdlePoll,
		PurgeOnJoinFailure: cfg.Policy.PurgeOnJoinFailure,
		ReconnectHoldOff:   cfg.Policy.ReconnectHoldOff,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.Server = pairing.NewServer(cfg.Pairing.Listen, inbox, a.Controller.Snapshot)

	logging.Info("Agent configured",
		zap.String("device_name", id.Name),
		zap.String("hardware_addr", id.HardwareAddr.String()),
		zap.String("store", store.Path()),
		zap.String("sensor_url", cfg.Uplink.SensorURL),
		zap.String("indicator", cfg.Indicator.Mode),
		zap.String("sensor", cfg.Sensor.Source),
	)
	return a, nil
}

// NewLink returns the simulated link populated with the configured networks.
func NewLink(cfg *config.Config, clk clock.Clock) *netlink.SimLink {
	link := netlink.NewSimLink(clk)
	for _, n := range cfg.Network.Networks {
		link.SetNetwork(netlink.Network{SSID: n.SSID, Password: n.Password, JoinDelay: n.JoinDelay})
	}
	return link
}

// NewSyncer returns an NTP syncer, or the local clock when time sync is off.
func NewSyncer(cfg *config.Config, clk clock.Clock) timesync.Syncer {
	if !cfg.TimeSync.Enabled {
		return timesync.Local{Clock: clk}
	}
	return timesync.NewNTP(cfg.TimeSync.Server, cfg.TimeSync.Timeout, clk)
}

// NewSensor opens the configured reading source.
func NewSensor(cfg *config.Config) (sensor.Source, error) {
	switch cfg.Sensor.Source {
	case config.SensorSerial:
		s, err := sensor.OpenSerial(cfg.Sensor.Port, cfg.Sensor.BaudRate)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SensorFixed, "":
		return sensor.Fixed{Value: cfg.Sensor.Value}, nil
	default:
		return nil, fmt.Errorf("unknown sensor source: %s", cfg.Sensor.Source)
	}
}

// NewIndicator returns the renderer selected by indicator.mode.
func NewIndicator(cfg *config.Config, out io.Writer) indicator.Indicator {
	switch cfg.Indicator.Mode {
	case config.IndicatorTerminal:
		return indicator.NewTerminal(out, cfg.Indicator.Brightness)
	case config.IndicatorLog:
		return &indicator.Log{}
	default:
		return indicator.Nop{}
	}
}

// Run serves the pairing channel and runs the control loop until ctx is done
// or the process receives SIGINT or SIGTERM.
func (a *Agent) Run(ctx context.Context) error {
	defer logging.Sync()
	defer a.close()

	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("failed to start pairing server: %w", err)
	}

	if a.cfg.Pairing.Advertise {
		a.advertiser = discovery.NewAdvertiser(a.Identity.Name, a.Server.Port(), pairing.PairPath, version.Version)
		if err := a.advertiser.Start(); err != nil {
			// Pairing still works by address.
			logging.Warn("mDNS advertisement unavailable", zap.Error(err))
			a.advertiser = nil
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := a.Controller.Run(ctx)
	logging.Info("Shutting down agent", zap.String("device_name", a.Identity.Name))

	if a.advertiser != nil {
		a.advertiser.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := a.Server.Shutdown(shutdownCtx); serr != nil {
		logging.Error("Pairing server shutdown failed", zap.Error(serr))
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (a *Agent) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logging.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}
