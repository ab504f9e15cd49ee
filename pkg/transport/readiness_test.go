package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadinessResolvesOnce(t *testing.T) {
	ready := NewReadiness()
	boom := errors.New("dial failed")
	ready.Resolve(boom)
	ready.Resolve(nil)

	require.ErrorIs(t, ready.Wait(context.Background()), boom)

	select {
	case <-ready.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestReadinessWaitHonorsContext(t *testing.T) {
	ready := NewReadiness()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, ready.Wait(ctx), context.DeadlineExceeded)
}
