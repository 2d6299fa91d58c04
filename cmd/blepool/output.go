package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/srg/blepool/internal/device"
)

// pooledEntry is the JSON shape of one pooled connection.
type pooledEntry struct {
	Key     string                 `json:"key"`
	Name    string                 `json:"name"`
	Address string                 `json:"address"`
	State   device.ConnectionState `json:"state"`
}

var (
	stateConnected    = color.New(color.FgGreen).SprintFunc()
	stateTransitional = color.New(color.FgYellow).SprintFunc()
	stateDisconnected = color.New(color.FgRed).SprintFunc()
)

func colorState(s device.ConnectionState) string {
	switch s {
	case device.StateConnected:
		return stateConnected(s.String())
	case device.StateConnecting, device.StateDisconnecting:
		return stateTransitional(s.String())
	default:
		return stateDisconnected(s.String())
	}
}

// writeHandles renders handles (already in listing order) as a table or JSON.
func writeHandles(w io.Writer, handles []device.Handle, capacity int, format string) error {
	if format == "json" {
		entries := make([]pooledEntry, 0, len(handles))
		for _, h := range handles {
			d := h.Device()
			entries = append(entries, pooledEntry{
				Key:     h.DeviceKey(),
				Name:    d.Name(),
				Address: d.Address(),
				State:   h.ConnectionState(),
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(handles) == 0 {
		_, err := fmt.Fprintf(w, "Pool is empty (capacity %d)\n", capacity)
		return err
	}

	fmt.Fprintf(w, "Pooled connections: %d/%d\n\n", len(handles), capacity)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tSTATE")
	fmt.Fprintln(tw, "---\t----\t-----")
	for _, h := range handles {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", h.DeviceKey(), h.Device().Name(), colorState(h.ConnectionState()))
	}
	return tw.Flush()
}
