//go:build !windows

package kinesis

// DLLConfig selects a vendor library and its function prefix. The
// vendor only ships Windows binaries; on other platforms use the
// Simulator.
type DLLConfig struct {
	Dir    string
	Lib    string
	Prefix string
}

// NewDLL is unavailable off Windows.
func NewDLL(cfg DLLConfig) (Library, error) {
	return nil, ErrUnsupportedPlatform
}
