package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scubaai/internal/auth/models"
	id "scubaai/pkg/domain"
)

func TestListByUserNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	userID := id.NewUserID()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	old := models.Session{ID: id.NewSessionID(), UserID: userID, DeviceName: "Firefox on Linux", LastSeenAt: base}
	recent := models.Session{ID: id.NewSessionID(), UserID: userID, DeviceName: "Chrome on Mac OS X", LastSeenAt: base.Add(time.Hour)}
	foreign := models.Session{ID: id.NewSessionID(), UserID: id.NewUserID(), LastSeenAt: base.Add(2 * time.Hour)}

	for _, sess := range []models.Session{old, recent, foreign} {
		require.NoError(t, store.Create(context.Background(), sess))
	}

	sessions, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, recent.ID, sessions[0].ID)
	assert.Equal(t, old.ID, sessions[1].ID)
}

func TestTouchAdvancesLastSeen(t *testing.T) {
	store := NewInMemoryStore()
	userID := id.NewUserID()
	sess := models.Session{ID: id.NewSessionID(), UserID: userID, LastSeenAt: time.Now().Add(-time.Hour)}
	require.NoError(t, store.Create(context.Background(), sess))

	now := time.Now()
	require.NoError(t, store.Touch(context.Background(), sess.ID, now))

	sessions, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, now, sessions[0].LastSeenAt)
}

func TestDeleteByUserRemovesOnlyTheirs(t *testing.T) {
	store := NewInMemoryStore()
	userID := id.NewUserID()
	other := id.NewUserID()

	require.NoError(t, store.Create(context.Background(), models.Session{ID: id.NewSessionID(), UserID: userID}))
	require.NoError(t, store.Create(context.Background(), models.Session{ID: id.NewSessionID(), UserID: other}))

	require.NoError(t, store.DeleteByUser(context.Background(), userID))

	mine, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := store.ListByUser(context.Background(), other)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}
