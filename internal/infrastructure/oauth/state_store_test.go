package oauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
)

func TestMemoryAttemptStore_ConsumeIsSingleUse(t *testing.T) {
	store := NewMemoryAttemptStore()
	require.NoError(t, store.Save(model.AuthorizationAttempt{
		State:        "st-1",
		UserID:       "alice@example.com",
		CodeVerifier: "verifier",
		Scopes:       []string{"accounts"},
		CreatedAt:    time.Now(),
	}))

	attempt, err := store.Consume("st-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", attempt.UserID)
	assert.Equal(t, "verifier", attempt.CodeVerifier)

	_, err = store.Consume("st-1")
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestMemoryAttemptStore_UnknownState(t *testing.T) {
	store := NewMemoryAttemptStore()
	_, err := store.Consume("never-issued")
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestMemoryAttemptStore_ExpiredState(t *testing.T) {
	store := NewMemoryAttemptStore()
	created := time.Now()
	require.NoError(t, store.Save(model.AuthorizationAttempt{
		State:     "st-old",
		UserID:    "alice@example.com",
		CreatedAt: created,
	}))

	// Just over the 15 minute TTL.
	store.now = func() time.Time { return created.Add(model.AttemptTTL + time.Second) }

	_, err := store.Consume("st-old")
	assert.ErrorIs(t, err, model.ErrStateExpired)

	// The expired record was deleted, so a retry is an unknown state.
	_, err = store.Consume("st-old")
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestMemoryAttemptStore_ConsumeAtBoundary(t *testing.T) {
	store := NewMemoryAttemptStore()
	created := time.Now()
	require.NoError(t, store.Save(model.AuthorizationAttempt{
		State:     "st-edge",
		UserID:    "alice@example.com",
		CreatedAt: created,
	}))

	// Exactly at the TTL the attempt is still redeemable.
	store.now = func() time.Time { return created.Add(model.AttemptTTL) }

	_, err := store.Consume("st-edge")
	assert.NoError(t, err)
}

func TestMemoryAttemptStore_PruneExpired(t *testing.T) {
	store := NewMemoryAttemptStore()
	now := time.Now()

	require.NoError(t, store.Save(model.AuthorizationAttempt{State: "fresh", CreatedAt: now}))
	require.NoError(t, store.Save(model.AuthorizationAttempt{State: "stale-1", CreatedAt: now.Add(-16 * time.Minute)}))
	require.NoError(t, store.Save(model.AuthorizationAttempt{State: "stale-2", CreatedAt: now.Add(-time.Hour)}))

	pruned := store.PruneExpired()
	assert.Equal(t, 2, pruned)
	assert.Equal(t, 1, store.Len())

	_, err := store.Consume("fresh")
	assert.NoError(t, err)
}
