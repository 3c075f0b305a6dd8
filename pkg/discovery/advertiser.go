package discovery

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface.
	// Empty uses all interfaces.
	Interface string

	// TTL overrides the record time-to-live.
	TTL time.Duration
}

// Advertiser announces instrument endpoints via mDNS. It is mainly
// useful for exposing simulated instruments to browsers on the LAN.
type Advertiser struct {
	config AdvertiserConfig

	mu      sync.Mutex
	servers map[string]*zeroconf.Server // keyed by instance name
}

// NewAdvertiser creates an mDNS instrument advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	return &Advertiser{
		config:  config,
		servers: make(map[string]*zeroconf.Server),
	}
}

// getInterfaces returns the network interfaces to advertise on.
// Returns nil to use all interfaces.
func (a *Advertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise announces an instrument as _scpi-raw._tcp. A previous
// announcement under the same instance name is replaced.
func (a *Advertiser) Advertise(ann *Announcement) error {
	if err := ann.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if server, exists := a.servers[ann.InstanceName]; exists {
		server.Shutdown()
		delete(a.servers, ann.InstanceName)
	}

	txtStrings := TXTRecordsToStrings(EncodeInstrumentTXT(ann))

	port := int(ann.Port)
	if port == 0 {
		port = DefaultSCPIPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		ann.InstanceName,
		ServiceTypeSCPIRaw,
		Domain,
		port,
		txtStrings,
		a.getInterfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register instrument service: %w", err)
	}

	a.servers[ann.InstanceName] = server
	return nil
}

// Stop withdraws the announcement for one instance name.
func (a *Advertiser) Stop(instanceName string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[instanceName]
	if !exists {
		return ErrNotFound
	}

	server.Shutdown()
	delete(a.servers, instanceName)
	return nil
}

// StopAll withdraws every announcement.
func (a *Advertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, server := range a.servers {
		server.Shutdown()
		delete(a.servers, name)
	}
}
