package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevokeThenCheck(t *testing.T) {
	list := NewInMemoryList()

	revoked, err := list.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(context.Background(), "jti-1", time.Hour))

	revoked, err = list.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRevocationExpires(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	list := NewInMemoryList(WithClock(func() time.Time { return now }))

	require.NoError(t, list.Revoke(context.Background(), "jti-1", time.Hour))

	now = now.Add(2 * time.Hour)
	revoked, err := list.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestEmptyJTIIsNoop(t *testing.T) {
	list := NewInMemoryList()
	require.NoError(t, list.Revoke(context.Background(), "", time.Hour))

	revoked, err := list.IsRevoked(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestNonPositiveTTLRejected(t *testing.T) {
	list := NewInMemoryList()
	assert.Error(t, list.Revoke(context.Background(), "jti-1", 0))
	assert.Error(t, list.Revoke(context.Background(), "jti-1", -time.Minute))
}
