package device

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionState_String(t *testing.T) {
	tests := []struct {
		state    ConnectionState
		expected string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateDisconnecting, "disconnecting"},
		{ConnectionState(42), "unknown(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestConnectionState_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]ConnectionState{"state": StateConnecting})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"state":"connecting"}`, string(data))
}

func TestConnectionError(t *testing.T) {
	wrapped := fmt.Errorf("%w: link lost", ErrNotConnected)

	assert.ErrorIs(t, wrapped, ErrNotConnected)
	assert.NotErrorIs(t, wrapped, ErrAlreadyConnected)
	assert.True(t, IsConnectionState(wrapped, StateDisconnected))
	assert.False(t, IsConnectionState(ErrTimeout, StateDisconnected))

	assert.Equal(t, "device connected", ErrAlreadyConnected.Error())
	assert.Equal(t, "device disconnected: gone", (&ConnectionError{State: StateDisconnected, Msg: "gone"}).Error())

	var nilErr *ConnectionError
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.False(t, nilErr.Is(ErrNotConnected))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", NormalizeKey(" aa:bb:cc:dd:ee:ff "))
	assert.Equal(t, "", NormalizeKey(""))
}

func TestInfo(t *testing.T) {
	named := NewInfo("aa:01", "Sensor")
	assert.Equal(t, "AA:01", named.Key())
	assert.Equal(t, "aa:01", named.Address())
	assert.Equal(t, "Sensor", named.Name())

	unnamed := NewInfo("aa:02", "")
	assert.Equal(t, "aa:02", unnamed.Name(), "name MUST fall back to the address")
}
