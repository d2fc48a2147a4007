package mongostore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/jobmongo/internal/mongostore"
)

// setupTestDB connects to the MongoDB deployment named by
// JOBMONGO_TEST_MONGO_URI, initializes a fresh, randomly named database
// (schema marker and indexes) under the prefix "test", and returns a ready
// DbContext. It skips
// the calling test when the env var is unset, the same way the Postgres
// compliance suite this is grounded on skips without MONO_STORAGE_DSN.
func setupTestDB(t *testing.T) (*mongostore.DbContext, context.Context) {
	t.Helper()

	uri := os.Getenv("JOBMONGO_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("set JOBMONGO_TEST_MONGO_URI to run mongostore compliance tests")
	}

	ctx := context.Background()
	dc, err := mongostore.NewDbContext(ctx, mongostore.Config{
		URI:      uri,
		Database: "jobmongo_test_" + uuid.NewString()[:8],
		Prefix:   "test",
	})
	require.NoError(t, err)
	require.NoError(t, dc.Init(ctx))

	t.Cleanup(func() {
		_ = dc.Disconnect(context.Background())
	})

	return dc, ctx
}

// setupTestConnection builds a Connection over a fresh DbContext with a
// default queue provider, plus the JobQueue, DistributedLock,
// CountersAggregator, and MonitoringApi backing it so tests can exercise
// the full stack.
func setupTestConnection(t *testing.T) (*mongostore.Connection, *mongostore.JobQueue, *mongostore.DistributedLock, *mongostore.CountersAggregator, *mongostore.MonitoringApi, context.Context) {
	t.Helper()

	dc, ctx := setupTestDB(t)

	jq := mongostore.NewJobQueue(dc, 50*time.Millisecond, time.Minute)
	providers := mongostore.NewQueueProviders()
	providers.RegisterDefault(mongostore.NewDefaultQueueProvider(jq))

	conn := mongostore.NewConnection(dc, providers)
	lock := mongostore.NewDistributedLock(dc, 5*time.Second)
	aggregator := mongostore.NewCountersAggregator(dc)
	monitoring := mongostore.NewMonitoringApi(dc)

	return conn, jq, lock, aggregator, monitoring, ctx
}
