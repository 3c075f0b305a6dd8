// Package station assembles instruments from a YAML configuration and
// exposes them under one roof: lookup by name, a combined parameter
// snapshot, and snapshot persistence to disk.
package station
