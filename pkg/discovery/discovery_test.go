package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTXTRecordRoundTrip(t *testing.T) {
	ann := &Announcement{
		InstanceName: "K-6430-04123456",
		Manufacturer: "Keithley",
		Model:        "6430",
		Serial:       "04123456",
	}

	strs := TXTRecordsToStrings(EncodeInstrumentTXT(ann))
	assert.Equal(t, []string{
		"Manufacturer=Keithley",
		"Model=6430",
		"SerialNumber=04123456",
	}, strs, "keys are sorted for deterministic announcements")

	txt := StringsToTXTRecords(strs)
	assert.Equal(t, "Keithley", txt[TXTKeyManufacturer])
	assert.Equal(t, "6430", txt[TXTKeyModel])
	assert.Equal(t, "04123456", txt[TXTKeySerial])
	assert.NotContains(t, txt, TXTKeyFirmware, "empty fields are omitted")
}

func TestStringsToTXTRecordsToleratesOddEntries(t *testing.T) {
	txt := StringsToTXTRecords([]string{
		"Model=6430",
		"bare-attribute",
		"",
		"=orphan-value",
		"Note=a=b",
	})

	assert.Equal(t, "6430", txt["Model"])
	assert.Equal(t, "", txt["bare-attribute"], "boolean attributes keep an empty value")
	assert.NotContains(t, txt, "")
	assert.Equal(t, "a=b", txt["Note"], "only the first '=' splits")
}

func TestServiceEntryToInstrument(t *testing.T) {
	entry := &ServiceEntry{
		Instance: "K-6430-04123456",
		Service:  ServiceTypeSCPIRaw,
		Host:     "k6430-lab1.local.",
		Port:     5025,
		Text: []string{
			"Manufacturer=Keithley",
			"Model=6430",
			"SerialNumber=04123456",
			"FirmwareVersion=C33",
		},
		Addrs: []string{"192.168.1.42"},
	}

	inst := entry.ToInstrument()
	require.NotNil(t, inst)
	assert.Equal(t, "K-6430-04123456", inst.InstanceName)
	assert.Equal(t, ServiceTypeSCPIRaw, inst.Service)
	assert.Equal(t, "Keithley", inst.Manufacturer)
	assert.Equal(t, "6430", inst.Model)
	assert.Equal(t, "04123456", inst.Serial)
	assert.Equal(t, "C33", inst.Firmware)
	assert.Equal(t, "192.168.1.42:5025", inst.Address())
}

func TestServiceEntryWithoutInstanceIsDropped(t *testing.T) {
	entry := &ServiceEntry{Host: "anon.local.", Port: 5025}
	assert.Nil(t, entry.ToInstrument())
}

func TestInstrumentAddressFallbacks(t *testing.T) {
	inst := &Instrument{Host: "k6430-lab1.local."}
	assert.Equal(t, "k6430-lab1.local.:5025", inst.Address(),
		"hostname and default port when nothing was resolved")

	inst.Addresses = []string{"10.0.0.7"}
	inst.Port = 5555
	assert.Equal(t, "10.0.0.7:5555", inst.Address())
}

func TestMergeAddresses(t *testing.T) {
	merged := mergeAddresses(
		[]string{"192.168.1.42", "fe80::1"},
		[]string{"fe80::1", "10.0.0.7"},
	)
	assert.Equal(t, []string{"192.168.1.42", "fe80::1", "10.0.0.7"}, merged)
}

func TestRemoveAddresses(t *testing.T) {
	remaining := removeAddresses(
		[]string{"192.168.1.42", "fe80::1", "10.0.0.7"},
		[]string{"fe80::1", "10.0.0.7"},
	)
	assert.Equal(t, []string{"192.168.1.42"}, remaining)

	assert.Empty(t, removeAddresses([]string{"fe80::1"}, []string{"fe80::1"}))
}

func TestAnnouncementValidate(t *testing.T) {
	require.Error(t, (&Announcement{}).Validate())

	long := make([]byte, MaxInstanceNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	err := (&Announcement{InstanceName: string(long)}).Validate()
	require.ErrorIs(t, err, ErrInstanceNameTooLong)

	require.NoError(t, (&Announcement{InstanceName: "K-6430-04123456"}).Validate())
}
