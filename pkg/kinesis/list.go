package kinesis

import (
	"bytes"
	"strings"
)

// DiscoveredDevice is one entry of a device-list scan.
type DiscoveredDevice struct {
	Type   HardwareType
	Serial string
}

// ListAvailableDevices scans the bus and returns the connected devices.
// Without an explicit type filter, all hardware type ids are probed.
// Devices that are already open do not appear in the list.
func ListAvailableDevices(lib Library, types ...HardwareType) ([]DiscoveredDevice, error) {
	if err := lib.BuildDeviceList(); err != nil {
		return nil, err
	}
	n := lib.DeviceListSize()
	if n == 0 {
		return nil, nil
	}

	var ids []int
	if len(types) == 0 {
		for id := 1; id <= 100; id++ {
			ids = append(ids, id)
		}
	} else {
		for _, t := range types {
			ids = append(ids, int(t))
		}
	}

	seen := make(map[string]bool)
	var devices []DiscoveredDevice
	for _, id := range ids {
		// 8 bytes per serial and one delimiter each, plus one surplus
		// byte the vendor requires. The by-type call returns all serials
		// of one hardware type, so the buffer must fit the worst case of
		// every device being that type.
		buf := make([]byte, 8*n+1+1)
		if err := lib.DeviceListByType(id, buf); err != nil {
			return nil, err
		}

		value := string(bytes.TrimRight(buf, "\x00"))
		for _, serial := range strings.Split(value, ",") {
			if serial == "" || seen[serial] {
				continue
			}
			seen[serial] = true
			devices = append(devices, DiscoveredDevice{
				Type:   HardwareType(id),
				Serial: serial,
			})
		}
		if len(devices) == n {
			// All known devices accounted for.
			break
		}
	}
	return devices, nil
}
