package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/blepool/internal/device"
	"github.com/srg/blepool/internal/device/sim"
	"github.com/srg/blepool/internal/pool"
)

// newSimulateCmd creates the command that drives the pool with in-memory connections
func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate OP...",
		Short: "Run pool operations against simulated connections",
		Long: `Run a sequence of pool operations against simulated connections, without a radio.

Each OP is one of:
  ADDR              connect ADDR and add it to the pool
  get:ADDR          look ADDR up (marks it as recently used)
  remove:ADDR       remove ADDR from the pool without disconnecting it
  disconnect:ADDR   request disconnection of ADDR (it stays pooled)

Evictions are reported as they happen, and the final pool content is printed.`,
		Example: `  blepool simulate --max-connections 2 11:22 55:66 get:11:22 33:44`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runSimulate,
	}
}

// simOp is one parsed simulate argument.
type simOp struct {
	verb string
	addr string
}

func parseSimOp(arg string) (simOp, error) {
	for _, verb := range []string{"get", "remove", "disconnect"} {
		if addr, ok := strings.CutPrefix(arg, verb+":"); ok {
			if addr == "" {
				return simOp{}, fmt.Errorf("missing address in '%s'", arg)
			}
			return simOp{verb: verb, addr: addr}, nil
		}
	}
	return simOp{verb: "add", addr: arg}, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ops := make([]simOp, 0, len(args))
	for _, arg := range args {
		op, err := parseSimOp(arg)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}

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

	out := cmd.OutOrStdout()
	created := make(map[string]*sim.Handle)

	for _, op := range ops {
		d := device.NewInfo(op.addr, "")

		switch op.verb {
		case "add":
			h, ok := created[d.Key()]
			if !ok {
				h = sim.NewHandle(op.addr, "")
				created[d.Key()] = h
			}
			before := closeCounts(created)
			p.Add(h)
			for key, n := range closeCounts(created) {
				if n > before[key] {
					fmt.Fprintf(out, "evicted %s\n", key)
				}
			}
		case "get":
			if _, ok := p.Find(d); !ok {
				fmt.Fprintf(out, "%s not pooled\n", d.Key())
			}
		case "remove":
			if h, ok := created[d.Key()]; ok {
				p.Remove(h)
			}
		case "disconnect":
			p.Disconnect(d)
		}
	}

	if cfg.OutputFormat == "table" {
		fmt.Fprintln(out)
	}
	return writeHandles(out, p.Handles(), p.Capacity(), cfg.OutputFormat)
}

// closeCounts snapshots how often each simulated handle has been closed.
// At most one handle is evicted per add, so map order does not matter.
func closeCounts(handles map[string]*sim.Handle) map[string]int {
	counts := make(map[string]int, len(handles))
	for key, h := range handles {
		counts[key] = h.CloseCalls()
	}
	return counts
}
