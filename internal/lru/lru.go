// Package lru provides a fixed-capacity map that evicts its least recently
// used entry when an insert would grow it past capacity.
//
// Eviction is reported through a caller supplied hook so the owner can
// release whatever resource the evicted value represents. Explicit Remove and
// Clear never invoke the hook.
//
// Map is not safe for concurrent use; the owner is expected to serialize access.
package lru

import (
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrInvalidCapacity is returned by New when capacity is less than one.
var ErrInvalidCapacity = errors.New("invalid capacity")

// EvictFunc is called with the least recently used entry right before it is
// dropped due to overflow. It must not call back into the Map.
type EvictFunc[K comparable, V any] func(key K, value V)

// Entry is a key/value pair snapshot.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Map is a capacity bounded key/value store ordered by recency of use.
// The oldest pair of the underlying ordered map is always the eviction victim.
type Map[K comparable, V any] struct {
	capacity int
	entries  *orderedmap.OrderedMap[K, V]
	onEvict  EvictFunc[K, V]
}

// New creates a Map holding at most capacity entries. onEvict may be nil.
func New[K comparable, V any](capacity int, onEvict EvictFunc[K, V]) (*Map[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d (must be at least 1)", ErrInvalidCapacity, capacity)
	}

	return &Map[K, V]{
		capacity: capacity,
		entries:  orderedmap.New[K, V](),
		onEvict:  onEvict,
	}, nil
}

// Capacity returns the maximum number of entries.
func (m *Map[K, V]) Capacity() int {
	return m.capacity
}

// Len returns the current number of entries.
func (m *Map[K, V]) Len() int {
	return m.entries.Len()
}

// ContainsKey reports whether key is present. It does not affect recency.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.entries.Get(key)
	return ok
}

// Get returns the value stored for key and marks it as most recently used.
func (m *Map[K, V]) Get(key K) (V, bool) {
	value, ok := m.entries.Get(key)
	if ok {
		_ = m.entries.MoveToBack(key)
	}
	return value, ok
}

// Peek returns the value stored for key without affecting recency.
func (m *Map[K, V]) Peek(key K) (V, bool) {
	return m.entries.Get(key)
}

// Put inserts or updates key. Updating an existing key marks it as most
// recently used. Inserting a new key into a full map first evicts the least
// recently used entry: the hook observes it, then it is removed, then the new
// entry is stored.
func (m *Map[K, V]) Put(key K, value V) {
	if _, ok := m.entries.Get(key); ok {
		m.entries.Set(key, value)
		_ = m.entries.MoveToBack(key)
		return
	}

	if m.entries.Len() >= m.capacity {
		m.evictOldest()
	}
	m.entries.Set(key, value)
}

// evictOldest hands the oldest entry to the hook and removes it afterwards.
// Removal happens even if the hook panics, so the map never keeps an entry
// the hook has already torn down.
func (m *Map[K, V]) evictOldest() {
	oldest := m.entries.Oldest()
	if oldest == nil {
		return
	}

	key, value := oldest.Key, oldest.Value
	defer m.entries.Delete(key)

	if m.onEvict != nil {
		m.onEvict(key, value)
	}
}

// Remove deletes key without invoking the eviction hook.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	return m.entries.Delete(key)
}

// Clear drops every entry without invoking the eviction hook.
func (m *Map[K, V]) Clear() {
	m.entries = orderedmap.New[K, V]()
}

// Entries returns a snapshot of all pairs, least recently used first.
func (m *Map[K, V]) Entries() []Entry[K, V] {
	result := make([]Entry[K, V], 0, m.entries.Len())
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, Entry[K, V]{Key: pair.Key, Value: pair.Value})
	}
	return result
}

// Keys returns a snapshot of all keys, least recently used first.
func (m *Map[K, V]) Keys() []K {
	result := make([]K, 0, m.entries.Len())
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Key)
	}
	return result
}

// Values returns a snapshot of all values, least recently used first.
func (m *Map[K, V]) Values() []V {
	result := make([]V, 0, m.entries.Len())
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}
