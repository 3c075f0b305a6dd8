// Package kinesis binds Thorlabs Kinesis motion controllers.
//
// The vendor ships one DLL per hardware family; every exported function is
// named <PREFIX>_<Name> and takes the device serial number as its first
// argument. The Library interface abstracts that surface so drivers can run
// against the real DLL on Windows or against the in-memory Simulator
// elsewhere. Device families (CageRotator, KCubeDCServo, FilterFlipper) are
// distinct types; a capability a family lacks is simply not a method on it.
package kinesis
