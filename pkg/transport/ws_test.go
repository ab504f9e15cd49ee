package transport

import (
	"testing"

	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWsTransportCloseSignalsThePump(t *testing.T) {
	tr := NewWsTransport("wss://gateway.example.com/ws", "")

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	// The pump selects on done when delivering events, so a closed transport
	// can never block on a full buffer.
	select {
	case <-tr.done:
	default:
		t.Fatal("done channel should be closed")
	}
	assert.Error(t, tr.Publish(models.UnifiedCommand{Action: "noop"}))
}
