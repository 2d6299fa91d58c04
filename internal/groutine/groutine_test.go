package groutine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGo_PropagatesName(t *testing.T) {
	names := make(chan string, 1)

	Go(context.Background(), "worker-42", func(ctx context.Context) {
		names <- GetName(ctx)
	})

	select {
	case name := <-names:
		assert.Equal(t, "worker-42", name)
	case <-time.After(time.Second):
		require.Fail(t, "goroutine did not run")
	}
}

func TestGo_NilParent(t *testing.T) {
	done := make(chan struct{})

	//nolint:staticcheck // nil parent is supported explicitly
	Go(nil, "nil-parent", func(ctx context.Context) {
		assert.NotNil(t, ctx)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "goroutine did not run")
	}
}

func TestGetName_Unnamed(t *testing.T) {
	assert.Equal(t, "", GetName(context.Background()))
	//nolint:staticcheck // nil context is supported explicitly
	assert.Equal(t, "", GetName(nil))
}
