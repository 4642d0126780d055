package discovery

import (
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/sensornode/internal/logging"
)

// Advertiser announces the agent's pairing channel over mDNS.
type Advertiser struct {
	Name    string // instance name, the device name
	Port    int    // pairing server port
	Path    string // pairing path
	Version string

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser returns an Advertiser for a device.
func NewAdvertiser(name string, port int, path, version string) *Advertiser {
	return &Advertiser{Name: name, Port: port, Path: path, Version: version}
}

// TXT returns the TXT records published with the service.
func (a *Advertiser) TXT() []string {
	return []string{
		TxtDevice + "=" + a.Name,
		TxtPath + "=" + a.Path,
		TxtVersion + "=" + a.Version,
	}
}

// Start registers the service. Calling Start twice is an error.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return fmt.Errorf("advertiser for %s already started", a.Name)
	}

	server, err := zeroconf.Register(a.Name, ServiceType, ServiceDomain, a.Port, a.TXT(), nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	a.server = server

	logging.Info("Advertising pairing service",
		zap.String("instance", a.Name),
		zap.String("service", ServiceType),
		zap.Int("port", a.Port),
	)
	return nil
}

// Stop withdraws the service. It is safe to call when not started.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	logging.Debug("Stopped advertising pairing service", zap.String("instance", a.Name))
}
