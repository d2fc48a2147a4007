package mongostore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnection_CreateExpiredJobAndReadBack(t *testing.T) {
	conn, _, _, _, _, ctx := setupTestConnection(t)

	id, err := conn.CreateExpiredJob(ctx, `{"type":"demo"}`, `["arg"]`,
		map[string]string{"retries": "3"}, time.Now(), time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	data, err := conn.GetJobData(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, `{"type":"demo"}`, data.Job.InvocationData)
	assert.Nil(t, data.Load)

	value, ok, err := conn.GetJobParameter(ctx, id, "retries")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, value)
	assert.Equal(t, "3", *value)
}

func TestConnection_GetJobData_MissingJobReturnsNil(t *testing.T) {
	conn, _, _, _, _, ctx := setupTestConnection(t)

	data, err := conn.GetJobData(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestConnection_SetJobParameter_UpsertsByJobAndName(t *testing.T) {
	conn, _, _, _, _, ctx := setupTestConnection(t)

	id, err := conn.CreateExpiredJob(ctx, `{}`, "", nil, time.Now(), time.Hour)
	require.NoError(t, err)

	first := "one"
	require.NoError(t, conn.SetJobParameter(ctx, id, "attempt", &first))

	second := "two"
	require.NoError(t, conn.SetJobParameter(ctx, id, "attempt", &second))

	value, ok, err := conn.GetJobParameter(ctx, id, "attempt")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, value)
	assert.Equal(t, "two", *value)
}

func TestConnection_GetJobData_LoadExceptionOnCorruptArguments(t *testing.T) {
	conn, _, _, _, _, ctx := setupTestConnection(t)

	id, err := conn.CreateExpiredJob(ctx, `{}`, "not-json", nil, time.Now(), time.Hour)
	require.NoError(t, err)

	data, err := conn.GetJobData(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, data)
	require.NotNil(t, data.Load)
	assert.Equal(t, "not-json", data.Load.Raw)
}
