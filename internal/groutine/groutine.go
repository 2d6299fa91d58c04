// Package groutine starts goroutines carrying a name, both as a pprof label and
// as a context value, so pool watchers and transport teardown show up
// identifiably in profiles and logs.
package groutine

import (
	"context"
	"runtime/pprof"
)

type ctxKey string

const nameKey ctxKey = "goroutine_name"

// Go runs fn on a new goroutine labelled with name.
// If parent is nil, context.Background() is used.
//
//	groutine.Go(ctx, "pool-watch-AA:BB", func(ctx context.Context) {
//	    // work
//	})
func Go(parent context.Context, name string, fn func(ctx context.Context)) {
	if parent == nil {
		parent = context.Background()
	}

	labels := pprof.Labels("goroutine_name", name)

	go pprof.Do(parent, labels, func(ctx context.Context) {
		fn(context.WithValue(ctx, nameKey, name))
	})
}

// GetName returns the name given to Go, or "" when ctx was not created by Go.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(nameKey).(string); ok {
		return s
	}
	return ""
}
