package main

import (
	"errors"
	"strings"

	"github.com/srg/blepool/internal/device"
	"github.com/srg/blepool/internal/lru"
)

// Command-level errors
var (
	// ErrNothingConnected indicates none of the requested devices could be connected.
	ErrNothingConnected = errors.New("no device connected")
)

// FormatUserError turns known errors into a short hint for the terminal.
// Unknown errors are printed as is.
func FormatUserError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off - please enable Bluetooth and retry"
	case errors.Is(err, device.ErrUnsupported):
		return "BLE is not supported on this platform (" + err.Error() + ")"
	case errors.Is(err, lru.ErrInvalidCapacity):
		return "pool size must be at least 1 (" + err.Error() + ")"
	case errors.Is(err, device.ErrTimeout):
		return "device did not respond in time: " + strings.TrimPrefix(err.Error(), device.ErrTimeout.Error()+": ")
	default:
		return err.Error()
	}
}
