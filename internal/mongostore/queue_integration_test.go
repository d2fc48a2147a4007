package mongostore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_EnqueueThenFetchNextJob(t *testing.T) {
	conn, _, _, _, _, ctx := setupTestConnection(t)

	id, err := conn.CreateExpiredJob(ctx, `{}`, "", nil, time.Now(), time.Hour)
	require.NoError(t, err)

	require.NoError(t, conn.NewTransaction().AddToQueue(id, "default").Commit(ctx))

	fetchCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	fetched, err := conn.FetchNextJob(fetchCtx, []string{"default"})
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, id, fetched.JobID())
	assert.Equal(t, "default", fetched.Queue())

	require.NoError(t, fetched.RemoveFromQueue(ctx))
}

func TestQueue_RequeueMakesJobVisibleAgain(t *testing.T) {
	conn, _, _, _, _, ctx := setupTestConnection(t)

	id, err := conn.CreateExpiredJob(ctx, `{}`, "", nil, time.Now(), time.Hour)
	require.NoError(t, err)
	require.NoError(t, conn.NewTransaction().AddToQueue(id, "default").Commit(ctx))

	fetchCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	fetched, err := conn.FetchNextJob(fetchCtx, []string{"default"})
	require.NoError(t, err)
	require.NoError(t, fetched.Requeue(ctx))

	fetchCtx2, cancel2 := context.WithTimeout(ctx, 2*time.Second)
	defer cancel2()
	refetched, err := conn.FetchNextJob(fetchCtx2, []string{"default"})
	require.NoError(t, err)
	require.NotNil(t, refetched)
	assert.Equal(t, id, refetched.JobID())
	require.NoError(t, refetched.RemoveFromQueue(ctx))
}

func TestQueue_FetchNextJob_BlocksUntilCanceled(t *testing.T) {
	conn, _, _, _, _, ctx := setupTestConnection(t)

	fetchCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	_, err := conn.FetchNextJob(fetchCtx, []string{"empty-queue"})
	assert.Error(t, err)
}

func TestQueue_NotifyQueueChanged_WakesBlockedDequeue(t *testing.T) {
	conn, jq, _, _, _, ctx := setupTestConnection(t)

	id, err := conn.CreateExpiredJob(ctx, `{}`, "", nil, time.Now(), time.Hour)
	require.NoError(t, err)

	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resultCh := make(chan error, 1)
	go func() {
		fetched, err := conn.FetchNextJob(fetchCtx, []string{"default"})
		if err == nil {
			err = fetched.RemoveFromQueue(ctx)
		}
		resultCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, conn.NewTransaction().AddToQueue(id, "default").Commit(ctx))
	jq.NotifyQueueChanged()

	select {
	case err := <-resultCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dequeue did not wake up after NotifyQueueChanged")
	}
}
