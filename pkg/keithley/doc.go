// Package keithley implements the Keithley 6430 sub-femtoamp source-measure
// unit driver.
//
// The driver exposes the instrument's source, sense, trigger, and filter
// subsystems as parameters bound to SCPI command pairs. A composite Read
// arms, triggers, and reads voltage, current, and resistance in one
// transport round trip; the positional meaning of the reply depends on the
// configured sensing mode.
package keithley
