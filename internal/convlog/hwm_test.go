package convlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenweb/webchat-core/internal/session"
	"github.com/lumenweb/webchat-core/pkg/logging"
)

func TestHighWaterMark_Monotonic(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()
	h := NewHighWaterMark(ctx, store, "lead-1", logging.New("error"))

	h.Advance(ctx, 100)
	assert.Equal(t, int64(100), h.Value())

	h.Advance(ctx, 50) // older page must not roll the cursor back
	assert.Equal(t, int64(100), h.Value())

	h.Advance(ctx, 0)
	assert.Equal(t, int64(100), h.Value())

	h.Advance(ctx, 250)
	assert.Equal(t, int64(250), h.Value())
}

func TestHighWaterMark_PersistsPerLead(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	h := NewHighWaterMark(ctx, store, "lead-1", nil)
	h.Advance(ctx, 7777)

	reloaded := NewHighWaterMark(ctx, store, "lead-1", nil)
	assert.Equal(t, int64(7777), reloaded.Value())

	other := NewHighWaterMark(ctx, store, "lead-2", nil)
	assert.Zero(t, other.Value())
}

func TestHighWaterMark_RebindAndClear(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	h := NewHighWaterMark(ctx, store, "lead-1", nil)
	h.Advance(ctx, 42)

	h.Rebind(ctx, "lead-2")
	assert.Zero(t, h.Value())

	h.Rebind(ctx, "lead-1")
	assert.Equal(t, int64(42), h.Value())

	h.Clear(ctx)
	assert.Zero(t, h.Value())
	_, ok, err := store.Get(ctx, session.KeyLastSeen("lead-1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHighWaterMark_NoLeadNoPersist(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	h := NewHighWaterMark(ctx, store, "", nil)
	h.Advance(ctx, 10)
	assert.Equal(t, int64(10), h.Value(), "in-memory value still advances")
}
