// Package discovery finds networked instruments via mDNS/DNS-SD.
//
// LXI-conforming instruments announce their raw-socket SCPI endpoint as
// _scpi-raw._tcp and the instrument itself as _lxi._tcp. Browsing either
// service yields instrument records with resolved addresses, the SCPI
// port, and the TXT metadata (typically Manufacturer, Model and
// SerialNumber).
//
// The browser aggregates responses per instance name, so an instrument
// visible on several interfaces produces one record with the union of
// its addresses. An advertiser is included for exposing simulated
// instruments on the network.
package discovery
