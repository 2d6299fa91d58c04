// Package pool keeps the set of live device connections bounded.
//
// A Pool holds at most one Handle per device key. When adding a handle would
// exceed the configured capacity, the least recently used handle is evicted,
// which disconnects and closes it. Every operation except Map is serialized by
// a single mutex owned by the Pool.
package pool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/blepool/internal/device"
	"github.com/srg/blepool/internal/groutine"
	"github.com/srg/blepool/internal/lru"
)

// Pool is a bounded, thread-safe registry of connection handles keyed by device.
type Pool struct {
	mu      sync.Mutex
	handles *lru.Map[string, device.Handle]
	logger  *logrus.Logger
}

// New creates a Pool that keeps at most capacity handles.
// Returns an error wrapping lru.ErrInvalidCapacity when capacity < 1.
func New(capacity int, logger *logrus.Logger) (*Pool, error) {
	if logger == nil {
		logger = logrus.New()
	}

	p := &Pool{logger: logger}
	handles, err := lru.New[string, device.Handle](capacity, p.evict)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	p.handles = handles

	return p, nil
}

// evict tears down a handle displaced by overflow. Runs with p.mu held.
// Teardown failures are logged, never propagated: the entry is removed regardless.
// Close runs even when Disconnect fails or panics.
func (p *Pool) evict(key string, h device.Handle) {
	log := p.logger.WithField("key", key)
	log.Info("Pool capacity exceeded, evicting least recently used connection")

	teardown(log, "disconnect", h.Disconnect)
	teardown(log, "close", h.Close)
}

// teardown runs one step of an eviction, logging an error or a recovered panic.
func teardown(log *logrus.Entry, step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{"step": step, "panic": r}).Error("Evicted connection teardown panicked")
		}
	}()

	if err := fn(); err != nil {
		log.WithField("step", step).WithError(err).Warn("Failed to tear down evicted connection")
	}
}

// Add registers h. Nil handles and handles whose device key is already
// registered are ignored; the registered handle is never replaced.
func (p *Pool) Add(h device.Handle) {
	if h == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := h.DeviceKey()
	if p.handles.ContainsKey(key) {
		p.logger.WithField("key", key).Debug("Connection already pooled, ignoring add")
		return
	}

	p.handles.Put(key, h)
	p.logger.WithFields(logrus.Fields{
		"key":  key,
		"size": p.handles.Len(),
	}).Debug("Connection added to pool")
}

// Remove unregisters the handle's device key. It does not disconnect or close
// the handle; callers that want teardown must do it themselves.
func (p *Pool) Remove(h device.Handle) {
	if h == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.handles.Remove(h.DeviceKey()); ok {
		p.logger.WithField("key", h.DeviceKey()).Debug("Connection removed from pool")
	}
}

// Contains reports whether a handle is registered for h's device key.
func (p *Pool) Contains(h device.Handle) bool {
	if h == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handles.ContainsKey(h.DeviceKey())
}

// ContainsDevice reports whether a handle is registered for d.
func (p *Pool) ContainsDevice(d device.Device) bool {
	if d == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handles.ContainsKey(d.Key())
}

// ConnectionState returns the state of the handle registered for d,
// or device.StateDisconnected if there is none.
func (p *Pool) ConnectionState(d device.Device) device.ConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h := p.find(d); h != nil {
		return h.ConnectionState()
	}
	return device.StateDisconnected
}

// Find returns the handle registered for d and marks it as recently used.
func (p *Pool) Find(d device.Device) (device.Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.find(d)
	return h, h != nil
}

func (p *Pool) find(d device.Device) device.Handle {
	if d == nil {
		return nil
	}
	h, ok := p.handles.Get(d.Key())
	if !ok {
		return nil
	}
	return h
}

// Disconnect requests disconnection of the handle registered for d.
// The handle stays registered; removal is up to whoever observes the
// resulting state change (see Watch).
func (p *Pool) Disconnect(d device.Device) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.find(d)
	if h == nil {
		return
	}
	if err := h.Disconnect(); err != nil {
		p.logger.WithField("key", d.Key()).WithError(err).Warn("Failed to disconnect")
	}
}

// DisconnectAll requests disconnection of every handle and empties the pool.
func (p *Pool) DisconnectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.handles.Entries() {
		if err := e.Value.Disconnect(); err != nil {
			p.logger.WithField("key", e.Key).WithError(err).Warn("Failed to disconnect")
		}
	}
	p.handles.Clear()
}

// CloseAll closes every handle and empties the pool. Intended for shutdown.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.handles.Entries() {
		if err := e.Value.Close(); err != nil {
			p.logger.WithField("key", e.Key).WithError(err).Warn("Failed to close")
		}
	}
	p.handles.Clear()
}

// Map returns the live backing map.
//
// The returned map is NOT synchronized with the Pool: reading or mutating it
// bypasses the pool lock and the single-handle-per-key guarantee. Callers must
// provide their own synchronization and must not use it concurrently with
// other Pool methods.
func (p *Pool) Map() *lru.Map[string, device.Handle] {
	return p.handles
}

// Handles returns a snapshot of all handles sorted by device key, case-insensitive.
func (p *Pool) Handles() []device.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sortedHandles()
}

// Devices returns the devices of all handles in the same order as Handles.
func (p *Pool) Devices() []device.Device {
	p.mu.Lock()
	defer p.mu.Unlock()

	handles := p.sortedHandles()
	devices := make([]device.Device, 0, len(handles))
	for _, h := range handles {
		devices = append(devices, h.Device())
	}
	return devices
}

func (p *Pool) sortedHandles() []device.Handle {
	handles := p.handles.Values()
	sort.Slice(handles, func(i, j int) bool {
		return strings.ToLower(handles[i].DeviceKey()) < strings.ToLower(handles[j].DeviceKey())
	})
	return handles
}

// Len returns the number of registered handles.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handles.Len()
}

// Capacity returns the configured maximum number of handles.
func (p *Pool) Capacity() int {
	return p.handles.Capacity()
}

// Watch removes h from the pool once its link is gone. Handles that do not
// implement device.Watchable are ignored. The watcher exits early when ctx is
// cancelled.
func (p *Pool) Watch(ctx context.Context, h device.Handle) {
	w, ok := h.(device.Watchable)
	if !ok {
		return
	}

	groutine.Go(ctx, "pool-watch-"+h.DeviceKey(), func(ctx context.Context) {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()

		// Another handle may have taken the key since; only drop our own.
		key := h.DeviceKey()
		if current, ok := p.handles.Peek(key); ok && current == h {
			p.handles.Remove(key)
			p.logger.WithFields(logrus.Fields{
				"key":       key,
				"goroutine": groutine.GetName(ctx),
			}).Info("Connection ended, removed from pool")
		}
	})
}
