package replay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreReserveOnce(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	ok, err := s.Reserve(ctx, "0xabc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reserve(ctx, "0xabc")
	require.NoError(t, err)
	assert.False(t, ok)

	// different proof is independent
	ok, err = s.Reserve(ctx, "0xdef")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreRelease(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	ok, err := s.Reserve(ctx, "0xabc")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Release(ctx, "0xabc"))

	ok, err = s.Reserve(ctx, "0xabc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }

	ok, _ := s.Reserve(ctx, "0xabc")
	require.True(t, ok)

	s.now = func() time.Time { return base.Add(30 * time.Second) }
	ok, _ = s.Reserve(ctx, "0xabc")
	assert.False(t, ok)

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	ok, _ = s.Reserve(ctx, "0xabc")
	assert.True(t, ok)
}
