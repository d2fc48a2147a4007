package mongostore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServers_AnnounceHeartbeatAndTimeout(t *testing.T) {
	conn, _, _, _, _, ctx := setupTestConnection(t)

	require.NoError(t, conn.AnnounceServer(ctx, "server-1", 4, []string{"default"}))
	require.NoError(t, conn.Heartbeat(ctx, "server-1"))

	removed, err := conn.RemoveTimedOutServers(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed, "a freshly-heartbeated server must not be reaped")

	removed, err = conn.RemoveTimedOutServers(ctx, -1)
	assert.Error(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestMonitoring_StateCountsAndStatistics(t *testing.T) {
	conn, _, _, _, monitoring, ctx := setupTestConnection(t)

	id, err := conn.CreateExpiredJob(ctx, `{}`, "", nil, time.Now(), time.Hour)
	require.NoError(t, err)
	require.NoError(t, conn.NewTransaction().SetJobState(id, "Succeeded", "", nil).Commit(ctx))

	counts, err := monitoring.StateCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["Succeeded"])

	page, err := monitoring.JobsByState(ctx, "Succeeded", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Jobs, 1)
	assert.Equal(t, id, page.Jobs[0].ID)
	assert.Empty(t, page.NextPageToken)
}
