package repository

import (
	"context"
	"testing"

	"admissions-crm/models"
	"admissions-crm/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDLQRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	m := &models.DLQMessage{Topic: "lead-events", MessageKey: "lead-1", Payload: `{"type":"lead.assigned"}`, ErrorMessage: "broker down"}
	require.NoError(t, repos.DLQ.Insert(ctx, m))
	other := &models.DLQMessage{Topic: "emails", Payload: `{}`, ErrorMessage: "smtp"}
	require.NoError(t, repos.DLQ.Insert(ctx, other))

	require.NoError(t, repos.DLQ.RecordRetry(ctx, m.ID, "still down"))
	require.NoError(t, repos.DLQ.RecordRetry(ctx, m.ID, ""))
	got, err := repos.DLQ.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "still down", got.ErrorMessage)
	assert.False(t, got.Resolved)

	stats, err := repos.DLQ.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Unresolved)
	assert.Equal(t, 1, stats.ByTopic["emails"])

	require.NoError(t, repos.DLQ.Resolve(ctx, other.ID, "sent manually"))
	unresolved, err := repos.DLQ.ListUnresolved(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, m.ID, unresolved[0].ID)

	resolved, err := repos.DLQ.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.NotNil(t, resolved.ResolvedAt)

	_, err = repos.DLQ.GetByID(ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repos.DLQ.Resolve(ctx, 12345, ""), ErrNotFound)
}
