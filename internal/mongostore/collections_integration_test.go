package mongostore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_SetHashListRoundTrip(t *testing.T) {
	conn, _, _, _, _, ctx := setupTestConnection(t)

	require.NoError(t, conn.NewTransaction().
		AddToSet("set-key", "a").
		AddRangeToSet("set-key", "b", 5).
		SetRangeInHash("hash-key", map[string]string{"f1": "v1", "f2": "v2"}).
		InsertToList("list-key", "first").
		InsertToList("list-key", "second").
		InsertToList("list-key", "third").
		Commit(ctx))

	values, err := conn.GetRangeFromSet(ctx, "set-key", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, values)

	count, err := conn.GetSetCount(ctx, "set-key")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	all, err := conn.GetAllItemsFromList(ctx, "list-key")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, all)
}

func TestTransaction_TrimListKeepsOnlyRequestedWindow(t *testing.T) {
	conn, _, _, _, _, ctx := setupTestConnection(t)

	txn := conn.NewTransaction()
	for _, v := range []string{"v1", "v2", "v3", "v4", "v5"} {
		txn = txn.InsertToList("trim-key", v)
	}
	require.NoError(t, txn.Commit(ctx))

	require.NoError(t, conn.NewTransaction().TrimList("trim-key", 0, 1).Commit(ctx))

	count, err := conn.GetListCount(ctx, "trim-key")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCounters_IncrementAndAggregate(t *testing.T) {
	conn, _, _, aggregator, _, ctx := setupTestConnection(t)

	txn := conn.NewTransaction()
	for i := 0; i < 5; i++ {
		txn = txn.IncrementCounter("job-counter", nil)
	}
	txn = txn.DecrementCounter("job-counter", nil)
	require.NoError(t, txn.Commit(ctx))

	total, err := conn.GetCounter(ctx, "job-counter")
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	aggCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = aggregator.Run(aggCtx, 100, time.Hour, time.Millisecond)
		close(done)
	}()
	time.Sleep(150 * time.Millisecond)
	cancel()
	<-done

	totalAfterRollup, err := conn.GetCounter(ctx, "job-counter")
	require.NoError(t, err)
	assert.Equal(t, int64(4), totalAfterRollup)
}
