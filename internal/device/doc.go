// Package device defines the domain types shared by the connection pool and
// its transport adapters.
//
// This package provides:
//   - Device descriptors keyed by a stable hardware address
//   - The Handle abstraction the pool manages (state, disconnect, close)
//   - Connection state enumeration and connection related errors
//
// Transport specifics live in sub-packages (see go-ble).
package device
