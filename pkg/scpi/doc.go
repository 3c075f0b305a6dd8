// Package scpi implements the line-oriented SCPI instrument binding.
//
// # Transports
//
// A Transport carries one ASCII command per line to a point-to-point
// instrument link and reads one line back for queries. The terminator is a
// fixed newline. Three implementations exist:
//
//   - TCPTransport: LXI raw socket (default port 5025)
//   - SerialTransport: RS-232 style serial link
//   - SimTransport: in-memory responder for tests and simulation
//
// Every call performs exactly one synchronous request/response (Ask) or
// fire-and-forget write (Write); there is no batching or pipelining, and
// calls on one transport are strictly ordered.
//
// # Instruments
//
// Instrument binds a named device to a Transport and a parameter registry.
// Drivers declare parameters as SCPI command pairs:
//
//	inst.MustAddCommand(scpi.Command{
//	    Name:   "source_voltage",
//	    Unit:   "V",
//	    GetCmd: "SOUR:VOLT:LEV?",
//	    SetCmd: "SOUR:VOLT:LEV %v",
//	    Parser: scpi.ParseFloat,
//	    Vals:   parameter.Numbers(-210, 210),
//	})
//
// All traffic is mirrored into the instrument event log.
package scpi
