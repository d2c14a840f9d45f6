package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) Storage {
	t.Helper()

	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	return NewRedisStorage(client, testLogger())
}

func TestRedisStorage_SetAndGet(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	saved := &UserState{
		UserID:       123,
		CurrentState: StateOnboardingGoal,
		Context:      map[string]interface{}{"goal_ml": "2000"},
	}
	require.NoError(t, storage.SetState(ctx, saved.UserID, saved))

	got, err := storage.GetState(ctx, saved.UserID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved.UserID, got.UserID)
	assert.Equal(t, saved.CurrentState, got.CurrentState)
	assert.Equal(t, saved.Context, got.Context)
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	storage := newTestStorage(t)

	got, err := storage.GetState(context.Background(), 999)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_ClearState(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	saved := &UserState{
		UserID:       456,
		CurrentState: StateOnboardingWindow,
		Context:      map[string]interface{}{"goal_ml": "1800"},
	}
	require.NoError(t, storage.SetState(ctx, saved.UserID, saved))

	require.NoError(t, storage.ClearState(ctx, saved.UserID))

	got, err := storage.GetState(ctx, saved.UserID)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_GetAllStates(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, storage.SetState(ctx, id, &UserState{
			UserID:       id,
			CurrentState: StateOnboardingGoal,
		}))
	}

	states, err := storage.GetAllStates(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 3)
}
