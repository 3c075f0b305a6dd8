package discovery

import (
	"errors"
	"fmt"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceTypeSCPIRaw is the LXI raw-socket SCPI service type.
	ServiceTypeSCPIRaw = "_scpi-raw._tcp"

	// ServiceTypeLXI is the general LXI instrument service type.
	ServiceTypeLXI = "_lxi._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultSCPIPort is the conventional raw-socket SCPI port.
	DefaultSCPIPort = 5025
)

// TXT record keys used by LXI instruments.
const (
	TXTKeyManufacturer = "Manufacturer"
	TXTKeyModel        = "Model"
	TXTKeySerial       = "SerialNumber"
	TXTKeyFirmware     = "FirmwareVersion"
)

// Timing and limits.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrNotFound            = errors.New("instrument not found")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
)

// Instrument is an instrument endpoint found via mDNS.
type Instrument struct {
	// InstanceName is the mDNS instance name (e.g. "K-6430-04123456").
	InstanceName string

	// Service is the service type the record came from.
	Service string

	// Host is the hostname (e.g. "k6430-lab1.local.").
	Host string

	// Port is the SCPI endpoint port.
	Port uint16

	// Addresses contains the resolved IP addresses.
	Addresses []string

	// Manufacturer, Model, Serial and Firmware come from the TXT
	// record; any of them may be empty.
	Manufacturer string
	Model        string
	Serial       string
	Firmware     string

	// TXT holds the full TXT record for keys not mapped above.
	TXT TXTRecordMap
}

// Address returns a dialable host:port for the instrument, preferring
// a resolved address over the hostname.
func (i *Instrument) Address() string {
	host := i.Host
	if len(i.Addresses) > 0 {
		host = i.Addresses[0]
	}
	port := i.Port
	if port == 0 {
		port = DefaultSCPIPort
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// Announcement describes an instrument to advertise.
type Announcement struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Port is the SCPI endpoint port (0 means DefaultSCPIPort).
	Port uint16

	// Manufacturer, Model, Serial and Firmware fill the TXT record.
	Manufacturer string
	Model        string
	Serial       string
	Firmware     string
}

// Validate checks the announcement fields.
func (a *Announcement) Validate() error {
	if a.InstanceName == "" {
		return errors.New("instance name is required")
	}
	if len(a.InstanceName) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
