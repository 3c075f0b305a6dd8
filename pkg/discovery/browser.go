package discovery

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures a Browser.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface.
	// Empty uses all interfaces.
	Interface string

	// Services lists the service types to browse.
	// Empty browses ServiceTypeSCPIRaw and ServiceTypeLXI.
	Services []string
}

// Browser finds instruments via mDNS.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates an mDNS instrument browser.
func NewBrowser(config BrowserConfig) *Browser {
	return &Browser{config: config}
}

// Browse searches for instruments until the context is cancelled.
// Instruments are aggregated by instance name: addresses seen on
// multiple interfaces are combined into a single record, and a record
// whose addresses all disappear is dropped. The channel closes when
// browsing ends.
func (b *Browser) Browse(ctx context.Context) (<-chan *Instrument, error) {
	services := b.config.Services
	if len(services) == 0 {
		services = []string{ServiceTypeSCPIRaw, ServiceTypeLXI}
	}

	out := make(chan *Instrument)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	// Each service type gets its own channel pair, owned by the zeroconf
	// resolver; results are fanned into the shared channels above.
	var wg sync.WaitGroup
	for _, service := range services {
		svcEntries := make(chan *zeroconf.ServiceEntry)
		svcRemoved := make(chan *zeroconf.ServiceEntry)

		wg.Add(1)
		go func() {
			defer wg.Done()
			forward(ctx, svcEntries, entries)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			forward(ctx, svcRemoved, removed)
		}()

		go func(service string) {
			_ = zeroconf.Browse(ctx, service, Domain, svcEntries, svcRemoved, opts...)
		}(service)
	}
	go func() {
		wg.Wait()
		close(entries)
		close(removed)
	}()

	go func() {
		defer close(out)

		// Track instruments by instance name, aggregating addresses.
		instruments := make(map[string]*Instrument)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				inst := newServiceEntry(entry).ToInstrument()
				if inst == nil {
					continue
				}

				existing, found := instruments[inst.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, inst.Addresses)
					continue
				}

				instruments[inst.InstanceName] = inst
				select {
				case out <- inst:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				if existing, found := instruments[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, newServiceEntry(entry).Addrs)
					if len(existing.Addresses) == 0 {
						delete(instruments, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// forward drains src into dst until src closes or the context ends.
func forward(ctx context.Context, src <-chan *zeroconf.ServiceEntry, dst chan<- *zeroconf.ServiceEntry) {
	for {
		select {
		case entry, ok := <-src:
			if !ok {
				return
			}
			select {
			case dst <- entry:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// FindBySerial searches for an instrument with a matching TXT serial
// number. It blocks until found, the context expires, or browsing ends.
func (b *Browser) FindBySerial(ctx context.Context, serial string) (*Instrument, error) {
	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case inst, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if inst.Serial == serial {
				return inst, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// browserOptions returns zeroconf client options based on config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// ServiceEntry is raw mDNS service entry data, decoupled from the
// zeroconf types so conversions stay testable.
type ServiceEntry struct {
	Instance string
	Service  string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// newServiceEntry flattens a zeroconf entry.
func newServiceEntry(entry *zeroconf.ServiceEntry) *ServiceEntry {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &ServiceEntry{
		Instance: entry.Instance,
		Service:  strings.TrimSuffix(entry.Service, "."+Domain+"."),
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
		Addrs:    addrs,
	}
}

// ToInstrument converts a ServiceEntry to an Instrument record.
// Returns nil for entries without an instance name.
func (e *ServiceEntry) ToInstrument() *Instrument {
	if e.Instance == "" {
		return nil
	}

	txt := StringsToTXTRecords(e.Text)

	return &Instrument{
		InstanceName: e.Instance,
		Service:      e.Service,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    e.Addrs,
		Manufacturer: txt[TXTKeyManufacturer],
		Model:        txt[TXTKeyModel],
		Serial:       txt[TXTKeySerial],
		Firmware:     txt[TXTKeyFirmware],
		TXT:          txt,
	}
}

// mergeAddresses adds new addresses to the existing list, avoiding duplicates.
func mergeAddresses(existing, found []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range found {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the addresses of a withdrawn entry from the list.
func removeAddresses(addresses, withdrawn []string) []string {
	toRemove := make(map[string]bool, len(withdrawn))
	for _, addr := range withdrawn {
		toRemove[addr] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
