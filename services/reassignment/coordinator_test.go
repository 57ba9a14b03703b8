package reassignment

import (
	"context"
	"testing"
	"time"

	"admissions-crm/models"
	"admissions-crm/repository"
	"admissions-crm/services/assignment"
	"admissions-crm/services/presence"
	"admissions-crm/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_AfterCounselorGoesOffline(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	repos := repository.New(database)

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tracker := presence.NewTracker(database, database, presence.WithClock(clock))
	engine := assignment.NewEngine(database, database)
	coord := NewCoordinator(database, engine)

	leaving := testutil.NewTestCounselor("Leaving", testutil.WithLoad(2, 10))
	require.NoError(t, repos.Counselors.Create(ctx, leaving))
	inactive := testutil.NewTestCounselor("On Leave", testutil.WithAvailability(models.AvailabilityInactive))
	require.NoError(t, repos.Counselors.Create(ctx, inactive))

	released := testutil.NewTestLead("Released", testutil.WithCounselor(leaving.ID, true))
	require.NoError(t, repos.Leads.Create(ctx, released))
	kept := testutil.NewTestLead("Kept", testutil.WithCounselor(leaving.ID, true))
	require.NoError(t, repos.Leads.Create(ctx, kept))
	stuck := testutil.NewTestLead("Stuck", testutil.WithCounselor(inactive.ID, false))
	require.NoError(t, repos.Leads.Create(ctx, stuck))

	require.NoError(t, repos.Sessions.Create(ctx, testutil.NewTestSession(released.ID, leaving.ID, now.Add(10*time.Minute))))

	_, err := tracker.RecordLogin(ctx, leaving.ID)
	require.NoError(t, err)
	now = now.Add(45 * time.Minute)
	_, err = tracker.CheckInactivity(ctx, leaving.ID)
	require.NoError(t, err)

	pending, err := coord.PendingReassignments(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, released.ID, pending[0].Session.LeadID)
	assert.Equal(t, "Released", pending[0].LeadName)
	assert.Equal(t, models.LeadNew, pending[0].LeadStatus)
	assert.Nil(t, pending[0].AssignedCounselorID)

	stranded, err := coord.StrandedLeads(ctx)
	require.NoError(t, err)
	ids := []int64{}
	for _, l := range stranded {
		ids = append(ids, l.ID)
	}
	assert.ElementsMatch(t, []int64{kept.ID, stuck.ID}, ids)

	dash, err := coord.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Presence[models.PresenceOffline])
	assert.Equal(t, 0, dash.Presence[models.PresenceActive])
	assert.Equal(t, 1, dash.PendingReassignments)
	assert.Equal(t, 1, dash.UnassignedLeads)
	assert.Equal(t, 2, dash.StrandedLeads)
}

func TestAutoReassignUnassigned(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	repos := repository.New(database)
	coord := NewCoordinator(database, assignment.NewEngine(database, database))

	for _, name := range []string{"One", "Two", "Three"} {
		require.NoError(t, repos.Leads.Create(ctx, testutil.NewTestLead(name)))
	}
	contacted := testutil.NewTestLead("Contacted", testutil.WithLeadStatus(models.LeadContacted))
	require.NoError(t, repos.Leads.Create(ctx, contacted))

	result, err := coord.AutoReassignUnassigned(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, 0, result.Assigned)
	assert.Equal(t, 3, result.Unassigned)

	c := testutil.NewTestCounselor("Fresh", testutil.WithLoad(0, 2))
	require.NoError(t, repos.Counselors.Create(ctx, c))

	result, err = coord.AutoReassignUnassigned(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, 2, result.Assigned)
	assert.Equal(t, 1, result.Unassigned)
	require.Len(t, result.Leads, 2)
	for _, l := range result.Leads {
		assert.Equal(t, c.ID, *l.AssignedCounselorID)
	}

	got, err := repos.Counselors.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentLoad)

	still, err := repos.Leads.GetByID(ctx, contacted.ID)
	require.NoError(t, err)
	assert.Nil(t, still.AssignedCounselorID)
}
