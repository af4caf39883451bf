package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"

	"github.com/nerrad567/sensord/internal/infrastructure/config"
)

// Service registration constants.
const (
	// ServiceType is the mDNS service type clients browse for.
	ServiceType = "_sensord._tcp"

	// Domain is the mDNS domain.
	Domain = "local."
)

// Advertiser publishes the sensord service over mDNS.
type Advertiser struct {
	cfg     config.DiscoveryConfig
	version string

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an Advertiser. Nothing is published until Start.
func NewAdvertiser(cfg config.DiscoveryConfig, version string) *Advertiser {
	return &Advertiser{cfg: cfg, version: version}
}

// Start registers the service on port with the given capability count in
// its TXT records. Restarting replaces the existing registration.
func (a *Advertiser) Start(port, capabilities int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	txt := []string{
		"version=" + a.version,
		fmt.Sprintf("capabilities=%d", capabilities),
	}

	server, err := zeroconf.Register(
		a.cfg.Instance,
		ServiceType,
		Domain,
		port,
		txt,
		a.interfaces(),
	)
	if err != nil {
		return fmt.Errorf("registering mdns service: %w", err)
	}

	a.server = server
	return nil
}

// Stop withdraws the advertisement. Safe to call without Start.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// interfaces returns the network interfaces to advertise on.
// Returns nil to use all interfaces.
func (a *Advertiser) interfaces() []net.Interface {
	if a.cfg.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.cfg.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}
