package goble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/blepool/internal/device"
	"github.com/srg/blepool/internal/groutine"
)

// DefaultConnectTimeout bounds a single Dial when no timeout is configured.
const DefaultConnectTimeout = 30 * time.Second

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = defaultDeviceFactory

// ConnectOptions configures Connect.
type ConnectOptions struct {
	ConnectTimeout time.Duration
}

// Connection is a device.Handle backed by a go-ble client.
//
// State moves Connecting -> Connected -> Disconnecting -> Disconnected.
// Disconnect and Close never wait for the radio: link cancellation runs on a
// named goroutine and completion is observed through Done.
type Connection struct {
	session string
	info    *device.Info
	logger  *logrus.Logger

	mu     sync.Mutex
	state  device.ConnectionState
	client ble.Client
	closed bool

	done     chan struct{}
	doneOnce sync.Once
}

// NewConnection creates a disconnected handle for address.
func NewConnection(address, name string, logger *logrus.Logger) *Connection {
	if logger == nil {
		logger = logrus.New()
	}

	return &Connection{
		session: uuid.NewString(),
		info:    device.NewInfo(address, name),
		logger:  logger,
		state:   device.StateDisconnected,
		done:    make(chan struct{}),
	}
}

// Dial creates a Connection for address and connects it.
func Dial(ctx context.Context, address string, opts *ConnectOptions, logger *logrus.Logger) (*Connection, error) {
	c := NewConnection(address, "", logger)
	if err := c.Connect(ctx, opts); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) log() *logrus.Entry {
	return c.logger.WithFields(logrus.Fields{
		"device":  c.info.Address(),
		"session": c.session,
	})
}

// Session returns the identifier used to correlate log lines of this connection.
func (c *Connection) Session() string {
	return c.session
}

func (c *Connection) DeviceKey() string     { return c.info.Key() }
func (c *Connection) Device() device.Device { return c.info }

func (c *Connection) ConnectionState() device.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the peer. A Connection can be connected only once.
func (c *Connection) Connect(ctx context.Context, opts *ConnectOptions) error {
	if opts == nil {
		opts = &ConnectOptions{}
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: connection is closed", device.ErrNotConnected)
	}
	if c.state != device.StateDisconnected {
		c.mu.Unlock()
		return device.ErrAlreadyConnected
	}
	c.state = device.StateConnecting
	c.mu.Unlock()

	client, err := c.dial(ctx, timeout)
	if err != nil {
		c.setState(device.StateDisconnected)
		return err
	}

	c.mu.Lock()
	if c.closed {
		// Close won the race while we were dialing.
		c.mu.Unlock()
		_ = client.CancelConnection()
		return fmt.Errorf("%w: connection closed while dialing", device.ErrNotConnected)
	}
	c.client = client
	c.state = device.StateConnected
	c.mu.Unlock()

	c.log().Info("Connected")

	groutine.Go(ctx, "ble-link-"+c.info.Key(), func(context.Context) {
		select {
		case <-client.Disconnected():
			c.log().Info("Link disconnected")
			c.finish()
		case <-c.done:
		}
	})

	return nil
}

func (c *Connection) dial(ctx context.Context, timeout time.Duration) (ble.Client, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, NormalizeError(err)
	}

	c.log().WithField("timeout", timeout).Debug("Dialing...")

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := dev.Dial(dialCtx, ble.NewAddr(c.info.Address()))
	if err != nil {
		if dialCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: connecting to %s after %s", device.ErrTimeout, c.info.Address(), timeout)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", c.info.Address(), NormalizeError(err))
	}
	return client, nil
}

// Disconnect requests link cancellation and returns immediately.
// Repeated calls and calls on a handle that is not connected are no-ops.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	if c.state != device.StateConnected || c.client == nil {
		c.mu.Unlock()
		return nil
	}
	c.state = device.StateDisconnecting
	client := c.client
	c.mu.Unlock()

	c.log().Debug("Disconnecting...")
	c.cancelLink(client)
	return nil
}

// Close releases the client and marks the handle disconnected for good.
// It is safe to call after or instead of Disconnect.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	client := c.client
	c.client = nil
	connected := c.state == device.StateConnected
	c.mu.Unlock()

	if client != nil && connected {
		c.cancelLink(client)
	}
	c.finish()
	c.log().Debug("Closed")
	return nil
}

func (c *Connection) cancelLink(client ble.Client) {
	groutine.Go(context.Background(), "ble-cancel-"+c.info.Key(), func(context.Context) {
		if err := client.CancelConnection(); err != nil {
			c.log().WithError(NormalizeError(err)).Warn("Failed to cancel connection")
		}
	})
}

func (c *Connection) setState(s device.ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Connection) finish() {
	c.setState(device.StateDisconnected)
	c.doneOnce.Do(func() { close(c.done) })
}

// Done is closed once the link is gone or the handle is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}
