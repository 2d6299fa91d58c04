package mocks

import (
	"github.com/srg/blepool/internal/device"
	"github.com/stretchr/testify/mock"
)

// MockHandle is a testify mock implementing device.Handle.
// DeviceKey and Device are answered from the embedded Info so tests only set
// expectations on the lifecycle calls they care about.
type MockHandle struct {
	mock.Mock
	Info *device.Info
}

// NewMockHandle creates a MockHandle for address.
func NewMockHandle(address string) *MockHandle {
	return &MockHandle{Info: device.NewInfo(address, "")}
}

func (m *MockHandle) DeviceKey() string     { return m.Info.Key() }
func (m *MockHandle) Device() device.Device { return m.Info }

func (m *MockHandle) ConnectionState() device.ConnectionState {
	args := m.Called()
	return args.Get(0).(device.ConnectionState)
}

func (m *MockHandle) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockHandle) Close() error {
	args := m.Called()
	return args.Error(0)
}

// NewMockHandleWithKey creates a MockHandle whose key is used verbatim.
func NewMockHandleWithKey(key string) *MockHandle {
	return &MockHandle{Info: &device.Info{DeviceKey: key, DeviceAddr: key}}
}
