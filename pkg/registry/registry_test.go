package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSeen(t *testing.T) {
	reg := New()

	require.True(t, reg.RecordSeen("tmp_1"))
	assert.False(t, reg.RecordSeen("tmp_1"))
	require.True(t, reg.RecordSeen("100"))
	assert.False(t, reg.RecordSeen("100"))
}

func TestMappingTransfersSeenMark(t *testing.T) {
	reg := New()
	reg.RegisterPending("tmp_1")
	require.True(t, reg.RecordSeen("tmp_1"))

	require.True(t, reg.MapTemporaryToPermanent("tmp_1", "100"))

	// Both forms of the same logical message count as one observation.
	assert.False(t, reg.RecordSeen("100"))
	assert.False(t, reg.RecordSeen("tmp_1"))
	assert.Equal(t, "100", reg.Resolve("tmp_1"))
	assert.Equal(t, "100", reg.Resolve("100"))
	assert.False(t, reg.IsPending("tmp_1"))
}

func TestMappingIsIdempotent(t *testing.T) {
	reg := New()
	reg.RegisterPending("tmp_1")

	require.True(t, reg.MapTemporaryToPermanent("tmp_1", "100"))
	assert.True(t, reg.MapTemporaryToPermanent("tmp_1", "100"))
	assert.False(t, reg.MapTemporaryToPermanent("tmp_1", "200"))
	assert.Equal(t, "100", reg.Resolve("tmp_1"))
}

func TestMappingAfterLocalDeleteIsNoop(t *testing.T) {
	reg := New()
	reg.RegisterPending("tmp_1")
	reg.Forget("tmp_1")

	assert.False(t, reg.MapTemporaryToPermanent("tmp_1", "100"))
	assert.Equal(t, "tmp_1", reg.Resolve("tmp_1"))
}

func TestResolveUnknownIsIdentity(t *testing.T) {
	reg := New()
	assert.Equal(t, "whatever", reg.Resolve("whatever"))
}

func TestClearDropsEverything(t *testing.T) {
	reg := New()
	reg.RegisterPending("tmp_1")
	reg.RecordSeen("tmp_1")
	require.True(t, reg.MapTemporaryToPermanent("tmp_1", "100"))

	reg.Clear()

	assert.Equal(t, "tmp_1", reg.Resolve("tmp_1"))
	assert.True(t, reg.RecordSeen("100"))
	assert.False(t, reg.IsPending("tmp_1"))
}

func TestPruneSeenKeepsNewest(t *testing.T) {
	reg := New()
	reg.RecordSeen("1")
	reg.RecordSeen("2")
	reg.RecordSeen("3")

	assert.Equal(t, 2, reg.PruneSeen(1))

	// The newest entry is still deduplicated, the pruned ones are not.
	assert.False(t, reg.RecordSeen("3"))
	assert.True(t, reg.RecordSeen("1"))
}
