package kinesis

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCode indicates a return code outside the vendor tables.
	ErrUnknownCode = errors.New("unknown return code")

	// ErrUnspecifiedFailure indicates a boolean-success call returned failure.
	ErrUnspecifiedFailure = errors.New("unspecified failure")

	// ErrUnsupportedPlatform indicates the vendor DLL binding is unavailable
	// on this operating system.
	ErrUnsupportedPlatform = errors.New("vendor library binding requires windows")

	// ErrNotConnected indicates an operation that needs an open device handle.
	ErrNotConnected = errors.New("device is not connected")

	// ErrNoDevicesFound indicates discovery returned no matching devices.
	ErrNoDevicesFound = errors.New("no devices found")
)

// errorNames maps vendor return codes to their symbolic names.
var errorNames = map[int]string{
	// Errors generated from the FTDI communications module or
	// supporting code
	0: "FT_OK",
	1: "FT_InvalidHandle",
	2: "FT_DeviceNotFound",
	3: "FT_DeviceNotOpened",
	4: "FT_IOError",
	5: "FT_InsufficientResources",
	6: "FT_InvalidParameter",
	7: "FT_DeviceNotPresent",
	8: "FT_IncorrectDevice",
	// Errors generated by the device libraries
	16: "FT_NoDLLLoaded",
	17: "FT_NoFunctionsAvailable",
	18: "FT_FunctionNotAvailable",
	19: "FT_BadFunctionPointer",
	20: "FT_GenericFunctionFail",
	21: "FT_SpecificFunctionFail",
	// General errors generated by all DLLs
	0x20: "TL_ALREADY_OPEN",
	0x21: "TL_NO_RESPONSE",
	0x22: "TL_NOT_IMPLEMENTED",
	0x23: "TL_FAULT_REPORTED",
	0x24: "TL_INVALID_OPERATION",
	0x28: "TL_DISCONNECTING",
	0x29: "TL_FIRMWARE_BUG",
	0x2A: "TL_INITIALIZATION_FAILURE",
	0x2B: "TL_INVALID_CHANNEL",
	// Motor-specific errors generated by the Motor DLLs
	0x25: "TL_UNHOMED",
	0x26: "TL_INVALID_POSITION",
	0x27: "TL_INVALID_VELOCITY_PARAMETER",
	0x2C: "TL_CANNOT_HOME_DEVICE",
	0x2D: "TL_JOG_CONTINUOUS_MODE",
	0x2E: "TL_NO_MOTOR_INFO",
	0x2F: "TL_CMD_TEMP_UNAVAILABLE",
}

// errorMessages maps symbolic names to the vendor's descriptive text.
var errorMessages = map[string]string{
	"FT_OK":            "Success",
	"FT_InvalidHandle": "The FTDI functions have not been initialized.",
	"FT_DeviceNotFound": "The Device could not be found. This can be " +
		"generated if the function TLI_BuildDeviceList() has not been called.",
	"FT_DeviceNotOpened": "The Device must be opened before it can be " +
		"accessed. See the appropriate Open function for your device.",
	"FT_IOError": "An I/O Error has occured in the FTDI chip.",
	"FT_InsufficientResources": "There are Insufficient resources to run " +
		"this application.",
	"FT_InvalidParameter": "An invalid parameter has been supplied to the " +
		"device.",
	"FT_DeviceNotPresent": "The Device is no longer present. The device " +
		"may have been disconnected since the last TLI_BuildDeviceList() call.",
	"FT_IncorrectDevice":       "The device detected does not match that expected.",
	"FT_NoDLLLoaded":           "The library for this device could not be found.",
	"FT_NoFunctionsAvailable":  "No functions available for this device.",
	"FT_FunctionNotAvailable":  "The function is not available for this device.",
	"FT_BadFunctionPointer":    "Bad function pointer detected.",
	"FT_GenericFunctionFail":   "The function failed to complete succesfully.",
	"FT_SpecificFunctionFail":  "The function failed to complete succesfully",
	"TL_ALREADY_OPEN":          "Attempt to open a device that was already open.",
	"TL_NO_RESPONSE":           "The device has stopped responding.",
	"TL_NOT_IMPLEMENTED":       "This function has not been implemented.",
	"TL_FAULT_REPORTED":        "The device has reported a fault.",
	"TL_INVALID_OPERATION":     "The function could not be completed at this time.",
	"TL_DISCONNECTING": "The function could not be completed because the " +
		"device is disconnected.",
	"TL_FIRMWARE_BUG":           "The firmware has thrown an error.",
	"TL_INITIALIZATION_FAILURE": "The device has failed to initialize.",
	"TL_INVALID_CHANNEL":        "An Invalid channel address was supplied.",
	"TL_UNHOMED": "The device cannot perform this function until it has " +
		"been Homed.",
	"TL_INVALID_POSITION": "The function cannot be performed as it would " +
		"result in an illegal position.",
	"TL_INVALID_VELOCITY_PARAMETER": "An invalid velocity parameter was " +
		"supplied. The velocity must be greater than zero.",
	"TL_CANNOT_HOME_DEVICE": "This device does not support Homing. Check " +
		"the Limit switch parameters are correct.",
	"TL_JOG_CONTINUOUS_MODE": "An invalid jog mode was supplied for the " +
		"jog function.",
	"TL_NO_MOTOR_INFO": "There is no Motor Parameters available to " +
		"convert Real World Units.",
	"TL_CMD_TEMP_UNAVAILABLE": "Command temporarily unavailable, Device " +
		"may be busy.",
}

// Error is a non-success return code from a vendor library call.
type Error struct {
	Code    int
	Name    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// errorCheck converts an integer return code into an error.
// 0 (FT_OK) means success.
func errorCheck(code int) error {
	name, ok := errorNames[code]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCode, code)
	}
	if name == "FT_OK" {
		return nil
	}
	return &Error{Code: code, Name: name, Message: errorMessages[name]}
}

// successCheck converts a boolean success code into an error.
// The vendor reports 1 for success and 0 for failure, with no detail.
func successCheck(ok bool) error {
	if !ok {
		return ErrUnspecifiedFailure
	}
	return nil
}
