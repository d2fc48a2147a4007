package mongostore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/rezkam/jobmongo/internal/domain"
	"github.com/rezkam/jobmongo/internal/mongostore"
)

func TestLock_AcquireReleaseRoundTrip(t *testing.T) {
	_, _, lock, _, _, ctx := setupTestConnection(t)

	newCtx, handle, err := lock.Acquire(ctx, "resource-a", time.Second)
	require.NoError(t, err)
	require.NotNil(t, handle)

	require.NoError(t, handle.Release(newCtx))
}

func TestLock_ReentrantAcquireDoesNotBlock(t *testing.T) {
	_, _, lock, _, _, ctx := setupTestConnection(t)

	ctx1, handle1, err := lock.Acquire(ctx, "resource-b", time.Second)
	require.NoError(t, err)

	ctx2, handle2, err := lock.Acquire(ctx1, "resource-b", time.Second)
	require.NoError(t, err)

	require.NoError(t, handle2.Release(ctx2))
	require.NoError(t, handle1.Release(ctx1))
}

func TestLock_SecondAcquireTimesOutWhileHeld(t *testing.T) {
	_, _, lock, _, _, ctx := setupTestConnection(t)

	_, holder, err := lock.Acquire(ctx, "resource-c", time.Second)
	require.NoError(t, err)
	defer func() { _ = holder.Release(ctx) }()

	contenderCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, _, err = lock.Acquire(contenderCtx, "resource-c", 300*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
}

func TestLock_ReleaseAfterStealReturnsErrLockLost(t *testing.T) {
	dc, ctx := setupTestDB(t)

	shortLived := mongostore.NewDistributedLock(dc, 50*time.Millisecond)
	_, handle, err := shortLived.Acquire(ctx, "resource-d", time.Second)
	require.NoError(t, err)

	// The holder's heartbeat keeps refreshing expireAt, so the row is
	// removed directly, as the TTL monitor would remove an expired one; a
	// second lock instance then takes the freed resource before the
	// original handle releases it.
	_, err = dc.Collections.Lock.DeleteOne(ctx, bson.D{{Key: "_id", Value: "resource-d"}})
	require.NoError(t, err)
	thief := mongostore.NewDistributedLock(dc, time.Second)
	_, thiefHandle, err := thief.Acquire(ctx, "resource-d", time.Second)
	require.NoError(t, err)
	defer func() { _ = thiefHandle.Release(ctx) }()

	assert.ErrorIs(t, handle.Release(ctx), domain.ErrLockLost)
}
