// Package sim provides an in-memory device.Handle that needs no radio.
// It backs the simulate command and the pool tests.
package sim

import (
	"sync"
	"sync/atomic"

	"github.com/srg/blepool/internal/device"
)

// Handle is a simulated connection. It starts in StateConnected.
// Disconnect and Close drive it to StateDisconnected and close Done.
type Handle struct {
	info  *device.Info
	state atomic.Int32

	disconnects atomic.Int32
	closes      atomic.Int32

	done     chan struct{}
	doneOnce sync.Once

	mu            sync.Mutex
	disconnectErr error
	closeErr      error
}

// NewHandle creates a connected simulated handle for address.
func NewHandle(address, name string) *Handle {
	h := &Handle{
		info: device.NewInfo(address, name),
		done: make(chan struct{}),
	}
	h.state.Store(int32(device.StateConnected))
	return h
}

func (h *Handle) DeviceKey() string     { return h.info.Key() }
func (h *Handle) Device() device.Device { return h.info }

func (h *Handle) ConnectionState() device.ConnectionState {
	return device.ConnectionState(h.state.Load())
}

// SetState forces the reported state without touching Done.
func (h *Handle) SetState(s device.ConnectionState) {
	h.state.Store(int32(s))
}

// FailWith makes subsequent Disconnect and Close calls return the given errors.
func (h *Handle) FailWith(disconnectErr, closeErr error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnectErr = disconnectErr
	h.closeErr = closeErr
}

// Disconnect simulates a link teardown that completes immediately.
func (h *Handle) Disconnect() error {
	h.disconnects.Add(1)
	h.finish()

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disconnectErr
}

// Close releases the simulated link.
func (h *Handle) Close() error {
	h.closes.Add(1)
	h.finish()

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeErr
}

// Drop simulates the peer going away without any local request.
func (h *Handle) Drop() {
	h.finish()
}

func (h *Handle) finish() {
	h.state.Store(int32(device.StateDisconnected))
	h.doneOnce.Do(func() { close(h.done) })
}

// Done is closed once the handle is disconnected.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// DisconnectCalls returns how many times Disconnect was called.
func (h *Handle) DisconnectCalls() int { return int(h.disconnects.Load()) }

// CloseCalls returns how many times Close was called.
func (h *Handle) CloseCalls() int { return int(h.closes.Load()) }
