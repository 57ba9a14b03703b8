package repository

import (
	"context"
	"testing"
	"time"

	"admissions-crm/models"
	"admissions-crm/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLeadWithCounselor(t *testing.T, repos *Repos) (*models.Counselor, *models.Lead) {
	t.Helper()
	ctx := context.Background()
	c := testutil.NewTestCounselor("Session Owner")
	require.NoError(t, repos.Counselors.Create(ctx, c))
	l := testutil.NewTestLead("Session Lead", testutil.WithCounselor(c.ID, true))
	require.NoError(t, repos.Leads.Create(ctx, l))
	return c, l
}

func TestSessionRepo_ListScheduledBefore(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))
	c, l := seedLeadWithCounselor(t, repos)
	now := testNow()

	overdue := testutil.NewTestSession(l.ID, c.ID, now.Add(-2*time.Hour))
	soon := testutil.NewTestSession(l.ID, c.ID, now.Add(20*time.Minute))
	edge := testutil.NewTestSession(l.ID, c.ID, now.Add(30*time.Minute))
	later := testutil.NewTestSession(l.ID, c.ID, now.Add(45*time.Minute))
	done := testutil.NewTestSession(l.ID, c.ID, now.Add(10*time.Minute))
	done.Status = models.SessionCompleted
	for _, s := range []*models.CounselingSession{overdue, soon, edge, later, done} {
		require.NoError(t, repos.Sessions.Create(ctx, s))
	}

	got, err := repos.Sessions.ListScheduledBefore(ctx, c.ID, now.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, overdue.ID, got[0].ID)
	assert.Equal(t, soon.ID, got[1].ID)
	assert.Equal(t, edge.ID, got[2].ID)
	assert.True(t, got[0].ScheduledDate.Equal(now.Add(-2*time.Hour)))
}

func TestSessionRepo_CancelAndPendingReassignment(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))
	c, l := seedLeadWithCounselor(t, repos)

	flagged := testutil.NewTestSession(l.ID, c.ID, testNow())
	plain := testutil.NewTestSession(l.ID, c.ID, testNow())
	require.NoError(t, repos.Sessions.Create(ctx, flagged))
	require.NoError(t, repos.Sessions.Create(ctx, plain))

	require.NoError(t, repos.Sessions.Cancel(ctx, flagged.ID, models.ReleasedSessionRemark))
	require.NoError(t, repos.Sessions.Cancel(ctx, plain.ID, "Lead cancelled"))
	assert.ErrorIs(t, repos.Sessions.Cancel(ctx, 999, "x"), ErrNotFound)

	got, err := repos.Sessions.GetByID(ctx, flagged.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, got.Status)
	assert.Equal(t, models.ReleasedSessionRemark, got.Remarks)

	pending, err := repos.Sessions.ListPendingReassignment(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, flagged.ID, pending[0].Session.ID)
	assert.Equal(t, l.Name, pending[0].LeadName)
	require.NotNil(t, pending[0].AssignedCounselorID)
	assert.Equal(t, c.ID, *pending[0].AssignedCounselorID)

	byLead, err := repos.Sessions.ListByLead(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, byLead, 2)
}

func TestSessionRepo_CancelOnlyScheduled(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))
	c := testutil.NewTestCounselor("Asha Rao")
	require.NoError(t, repos.Counselors.Create(ctx, c))
	lead := testutil.NewTestLead("Ravi Kumar")
	require.NoError(t, repos.Leads.Create(ctx, lead))
	s := testutil.NewTestSession(lead.ID, c.ID, time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repos.Sessions.Create(ctx, s))

	require.NoError(t, repos.Sessions.Cancel(ctx, s.ID, models.ReleasedSessionRemark))
	assert.ErrorIs(t, repos.Sessions.Cancel(ctx, s.ID, "Lead cancelled"), ErrNotFound)

	got, err := repos.Sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReleasedSessionRemark, got.Remarks)
}
