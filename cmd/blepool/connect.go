package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blepool/internal/device"
	goble "github.com/srg/blepool/internal/device/go-ble"
	"github.com/srg/blepool/internal/pool"
)

// newConnectCmd creates the connect command
func newConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect ADDR...",
		Short: "Connect to BLE devices and keep them pooled",
		Long: `Connect to each device address in turn and add it to the pool.

When more addresses are given than the pool can hold, the least recently
used connection is disconnected to make room. Connections that drop are
removed from the pool. Press Ctrl+C to close every connection and exit.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runConnect,
	}
}

// waitForInterrupt blocks until Ctrl+C; overridden in tests.
var waitForInterrupt = func(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	p, err := pool.New(cfg.MaxConnections, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	defer p.CloseAll()

	opts := &goble.ConnectOptions{ConnectTimeout: cfg.ConnectTimeout}
	var errs []error
	for _, addr := range args {
		if p.ContainsDevice(device.NewInfo(addr, "")) {
			logger.WithField("device", addr).Debug("Already pooled, skipping")
			continue
		}

		conn, err := goble.Dial(ctx, addr, opts, logger)
		if err != nil {
			logger.WithFields(logrus.Fields{"device": addr}).WithError(err).Warn("Connect failed")
			errs = append(errs, err)
			continue
		}

		p.Add(conn)
		// The pool keeps the first handle per device; one it did not keep is ours to close.
		if pooled, ok := p.Find(conn.Device()); !ok || pooled != device.Handle(conn) {
			_ = conn.Close()
			continue
		}
		p.Watch(ctx, conn)
	}

	if p.Len() == 0 {
		if len(errs) == 0 {
			return ErrNothingConnected
		}
		return fmt.Errorf("%w: %w", ErrNothingConnected, errors.Join(errs...))
	}

	out := cmd.OutOrStdout()
	if err := writeHandles(out, p.Handles(), p.Capacity(), cfg.OutputFormat); err != nil {
		return err
	}
	if cfg.OutputFormat == "table" {
		fmt.Fprintln(out, "\nPress Ctrl+C to disconnect and exit")
	}

	waitForInterrupt(ctx)
	logger.WithField("connections", p.Len()).Info("Closing pooled connections")
	return nil
}
