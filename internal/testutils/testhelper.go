package testutils

import (
	"fmt"
	"testing"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/blepool/internal/device/sim"
)

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
}

// NewTestHelper creates a test helper with a debug level logger.
func NewTestHelper(t *testing.T) *TestHelper {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	return &TestHelper{
		T:      t,
		Logger: logger,
	}
}

// HandleTracker records simulated handles created from many goroutines so a
// test can inspect all of them once the concurrent phase is over.
type HandleTracker struct {
	handles *hashmap.Map[string, *sim.Handle]
}

// NewHandleTracker creates an empty tracker.
func NewHandleTracker() *HandleTracker {
	return &HandleTracker{handles: hashmap.New[string, *sim.Handle]()}
}

// New creates a simulated handle for address and tracks it.
// Tracking the same address twice returns the first handle.
func (t *HandleTracker) New(address string) *sim.Handle {
	h, _ := t.handles.GetOrInsert(address, sim.NewHandle(address, ""))
	return h
}

// Newf is New with a formatted address.
func (t *HandleTracker) Newf(format string, args ...any) *sim.Handle {
	return t.New(fmt.Sprintf(format, args...))
}

// Len returns the number of tracked handles.
func (t *HandleTracker) Len() int {
	return t.handles.Len()
}

// Range calls fn for every tracked handle until fn returns false.
func (t *HandleTracker) Range(fn func(address string, h *sim.Handle) bool) {
	t.handles.Range(fn)
}
