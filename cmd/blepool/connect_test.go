package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/srg/blepool/internal/device"
	goble "github.com/srg/blepool/internal/device/go-ble"
	"github.com/srg/blepool/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type stubClient struct {
	ble.Client
	disconnected chan struct{}
	once         sync.Once
	cancels      *atomic.Int32
}

func (c *stubClient) CancelConnection() error {
	c.once.Do(func() {
		c.cancels.Add(1)
		close(c.disconnected)
	})
	return nil
}

func (c *stubClient) Disconnected() <-chan struct{} { return c.disconnected }

type stubDevice struct {
	ble.Device
	dial func(ctx context.Context, a ble.Addr) (ble.Client, error)
}

func (d *stubDevice) Dial(ctx context.Context, a ble.Addr) (ble.Client, error) {
	return d.dial(ctx, a)
}

type ConnectTestSuite struct {
	CommandTestSuite
	originalFactory func() (ble.Device, error)
	originalWait    func(context.Context)
	cancels         *atomic.Int32
	dials           *atomic.Int32
}

func (s *ConnectTestSuite) SetupTest() {
	s.originalFactory = goble.DeviceFactory
	s.originalWait = waitForInterrupt
	// Fresh counters per test: cancellations run on detached goroutines and
	// may still land after the previous test finished.
	cancels, dials := new(atomic.Int32), new(atomic.Int32)
	s.cancels, s.dials = cancels, dials

	waitForInterrupt = func(context.Context) {}
	goble.DeviceFactory = func() (ble.Device, error) {
		return &stubDevice{dial: func(_ context.Context, a ble.Addr) (ble.Client, error) {
			dials.Add(1)
			if a.String() == "de:ad:00:00:00:00" {
				return nil, errors.New("connection refused")
			}
			return &stubClient{disconnected: make(chan struct{}), cancels: cancels}, nil
		}}, nil
	}
}

func (s *ConnectTestSuite) TearDownTest() {
	goble.DeviceFactory = s.originalFactory
	waitForInterrupt = s.originalWait
}

func (s *ConnectTestSuite) TestConnectsAndClosesOnExit() {
	out, err := s.ExecuteCommand("connect", "-f", "json", "--max-connections", "2",
		"aa:00:00:00:00:02", "de:ad:00:00:00:00", "aa:00:00:00:00:01")
	s.Require().NoError(err)

	testutils.NewJSONAsserter(s.T()).Assert(out, `[
		{"key": "AA:00:00:00:00:01", "name": "aa:00:00:00:00:01", "address": "aa:00:00:00:00:01", "state": "connected"},
		{"key": "AA:00:00:00:00:02", "name": "aa:00:00:00:00:02", "address": "aa:00:00:00:00:02", "state": "connected"}
	]`)

	s.Eventually(func() bool { return s.cancels.Load() == 2 }, time.Second, 5*time.Millisecond,
		"every pooled connection MUST be closed on exit")
}

func (s *ConnectTestSuite) TestEvictsWhenFull() {
	out, err := s.ExecuteCommand("connect", "--max-connections", "1", "aa:00:00:00:00:01", "aa:00:00:00:00:02")
	s.Require().NoError(err)

	s.Contains(out, "Pooled connections: 1/1")
	s.Contains(out, "AA:00:00:00:00:02")
	s.NotContains(out, "AA:00:00:00:00:01")
}

func (s *ConnectTestSuite) TestDuplicateAddressDialedOnce() {
	out, err := s.ExecuteCommand("connect", "-f", "json", "--max-connections", "2",
		"aa:00:00:00:00:01", "AA:00:00:00:00:01")
	s.Require().NoError(err)

	testutils.NewJSONAsserter(s.T()).Assert(out, `[
		{"key": "AA:00:00:00:00:01", "name": "aa:00:00:00:00:01", "address": "aa:00:00:00:00:01", "state": "connected"}
	]`)
	s.Equal(int32(1), s.dials.Load(), "an already pooled device MUST NOT be dialed again")
	s.Eventually(func() bool { return s.cancels.Load() == 1 }, time.Second, 5*time.Millisecond,
		"every dialed connection MUST be closed on exit")
	s.Never(func() bool { return s.cancels.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func (s *ConnectTestSuite) TestNothingConnected() {
	s.Run("dial failures", func() {
		_, err := s.ExecuteCommand("connect", "de:ad:00:00:00:00")
		s.ErrorIs(err, ErrNothingConnected)
		s.ErrorContains(err, "connection refused")
	})

	s.Run("no backend", func() {
		goble.DeviceFactory = func() (ble.Device, error) {
			return nil, device.ErrUnsupported
		}
		_, err := s.ExecuteCommand("connect", "aa:00:00:00:00:01")
		s.ErrorIs(err, device.ErrUnsupported)
		s.Contains(FormatUserError(err), "not supported on this platform")
	})
}

func TestConnectTestSuite(t *testing.T) {
	suite.Run(t, new(ConnectTestSuite))
}
