package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeInstrumentTXT creates TXT records for an instrument announcement.
func EncodeInstrumentTXT(a *Announcement) TXTRecordMap {
	txt := make(TXTRecordMap)
	if a.Manufacturer != "" {
		txt[TXTKeyManufacturer] = a.Manufacturer
	}
	if a.Model != "" {
		txt[TXTKeyModel] = a.Model
	}
	if a.Serial != "" {
		txt[TXTKeySerial] = a.Serial
	}
	if a.Firmware != "" {
		txt[TXTKeyFirmware] = a.Firmware
	}
	return txt
}

// TXTRecordsToStrings converts a TXT map to "key=value" strings,
// sorted by key for deterministic announcements.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	strs := make([]string, 0, len(keys))
	for _, k := range keys {
		strs = append(strs, fmt.Sprintf("%s=%s", k, txt[k]))
	}
	return strs
}

// StringsToTXTRecords parses "key=value" strings into a TXT map.
// Entries without '=' are stored with an empty value, as DNS-SD
// allows boolean attributes.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap, len(strs))
	for _, s := range strs {
		if s == "" {
			continue
		}
		key, value, _ := strings.Cut(s, "=")
		if key == "" {
			continue
		}
		txt[key] = value
	}
	return txt
}
