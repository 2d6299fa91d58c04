package device

import (
	"errors"
	"fmt"
	"strings"
)

// ConnectionState is the lifecycle state reported by a Handle.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

var stateNames = [...]string{
	StateDisconnected:  "disconnected",
	StateConnecting:    "connecting",
	StateConnected:     "connected",
	StateDisconnecting: "disconnecting",
}

func (s ConnectionState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("unknown(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state as its lowercase name (used by JSON output).
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return "device " + e.State.String()
	}
	return fmt.Sprintf("device %s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected     = &ConnectionError{State: StateDisconnected}
	ErrAlreadyConnected = &ConnectionError{State: StateConnected}
)

// Operation errors
var (
	ErrTimeout      = errors.New("timeout")
	ErrUnsupported  = errors.New("unsupported")
	ErrBluetoothOff = errors.New("bluetooth is turned off")
)

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// NormalizeKey converts a hardware address into the canonical identity key form
// (trimmed, upper case).
func NormalizeKey(address string) string {
	return strings.ToUpper(strings.TrimSpace(address))
}

// Device describes a peer device. Key must be stable for the device lifetime.
type Device interface {
	Key() string
	Name() string
	Address() string
}

// Handle is one logical connection to a Device.
//
// Disconnect requests a graceful, asynchronous teardown of the link. Close
// releases every local resource tied to the handle and may be called after or
// instead of Disconnect. Both must be idempotent and must not block on network
// round-trips.
type Handle interface {
	DeviceKey() string
	Device() Device
	ConnectionState() ConnectionState
	Disconnect() error
	Close() error
}

// Watchable is implemented by handles that can signal the end of their link.
// Done is closed once the handle reaches StateDisconnected for good.
type Watchable interface {
	Done() <-chan struct{}
}

// Info is a plain Device descriptor.
type Info struct {
	DeviceKey  string `json:"key"`
	DeviceName string `json:"name,omitempty"`
	DeviceAddr string `json:"address"`
}

// NewInfo creates a descriptor keyed by the normalized address.
func NewInfo(address, name string) *Info {
	return &Info{
		DeviceKey:  NormalizeKey(address),
		DeviceName: name,
		DeviceAddr: address,
	}
}

func (i *Info) Key() string     { return i.DeviceKey }
func (i *Info) Address() string { return i.DeviceAddr }

// Name falls back to the address when the device did not advertise a name.
func (i *Info) Name() string {
	if i.DeviceName == "" {
		return i.DeviceAddr
	}
	return i.DeviceName
}
