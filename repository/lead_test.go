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

func testNow() time.Time {
	return time.Date(2026, 10, 18, 10, 30, 0, 0, time.UTC)
}

func TestLeadRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	course := testutil.NewTestCourse("MBA")
	require.NoError(t, repos.Courses.Create(ctx, course))
	counselor := testutil.NewTestCounselor("Owner")
	require.NoError(t, repos.Counselors.Create(ctx, counselor))

	lead := testutil.NewTestLead("Ravi", testutil.WithCourse(course.ID),
		testutil.WithLanguage("Hindi"), testutil.WithCounselor(counselor.ID, true))
	lead.AssignmentReason = "Auto-assigned: Language match (Score: 30)"
	require.NoError(t, repos.Leads.Create(ctx, lead))

	got, err := repos.Leads.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CourseID)
	assert.Equal(t, course.ID, *got.CourseID)
	require.NotNil(t, got.AssignedCounselorID)
	assert.Equal(t, counselor.ID, *got.AssignedCounselorID)
	assert.True(t, got.AutoAssigned)
	assert.Equal(t, models.LeadNew, got.Status)
	assert.Equal(t, "Hindi", got.PreferredLanguage)

	_, err = repos.Leads.GetByID(ctx, 777)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeadRepo_UnassignedLeadNeverAutoAssigned(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	lead := testutil.NewTestLead("Orphan")
	lead.AutoAssigned = true
	require.NoError(t, repos.Leads.Create(ctx, lead))
	assert.False(t, lead.AutoAssigned)

	require.NoError(t, repos.Leads.UpdateAssignment(ctx, lead.ID, nil, true, "No counselors available: x"))
	got, err := repos.Leads.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedCounselorID)
	assert.False(t, got.AutoAssigned)
	assert.Equal(t, "No counselors available: x", got.AssignmentReason)
}

func TestLeadRepo_Release(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	counselor := testutil.NewTestCounselor("Leaving")
	require.NoError(t, repos.Counselors.Create(ctx, counselor))
	lead := testutil.NewTestLead("Kept", testutil.WithCounselor(counselor.ID, true),
		testutil.WithLeadStatus(models.LeadFollowUp))
	require.NoError(t, repos.Leads.Create(ctx, lead))

	require.NoError(t, repos.Leads.Release(ctx, lead.ID, "Counselor went offline"))

	got, err := repos.Leads.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedCounselorID)
	assert.False(t, got.AutoAssigned)
	assert.Equal(t, models.LeadNew, got.Status)

	assert.ErrorIs(t, repos.Leads.Release(ctx, 5555, "x"), ErrNotFound)
}

func TestLeadRepo_ListFilters(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	counselor := testutil.NewTestCounselor("Filter")
	require.NoError(t, repos.Counselors.Create(ctx, counselor))

	assigned := testutil.NewTestLead("Assigned", testutil.WithCounselor(counselor.ID, false))
	open := testutil.NewTestLead("Open")
	enrolled := testutil.NewTestLead("Enrolled", testutil.WithLeadStatus(models.LeadEnrolled))
	for _, l := range []*models.Lead{assigned, open, enrolled} {
		require.NoError(t, repos.Leads.Create(ctx, l))
	}

	all, err := repos.Leads.List(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	unassigned, err := repos.Leads.List(ctx, LeadFilter{Unassigned: true})
	require.NoError(t, err)
	assert.Len(t, unassigned, 2)

	byCounselor, err := repos.Leads.List(ctx, LeadFilter{CounselorID: &counselor.ID})
	require.NoError(t, err)
	require.Len(t, byCounselor, 1)
	assert.Equal(t, assigned.ID, byCounselor[0].ID)

	byStatus, err := repos.Leads.List(ctx, LeadFilter{Status: models.LeadEnrolled})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, enrolled.ID, byStatus[0].ID)

	future := time.Now().Add(time.Hour)
	none, err := repos.Leads.List(ctx, LeadFilter{CreatedAfter: &future})
	require.NoError(t, err)
	assert.Empty(t, none)

	limited, err := repos.Leads.List(ctx, LeadFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	n, err := repos.Leads.CountUnassigned(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLeadRepo_ExistsByEmailOrPhone(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	lead := testutil.NewTestLead("Dup")
	require.NoError(t, repos.Leads.Create(ctx, lead))

	exists, err := repos.Leads.ExistsByEmailOrPhone(ctx, lead.Email, "other")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repos.Leads.ExistsByEmailOrPhone(ctx, "x@y.z", lead.Phone)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repos.Leads.ExistsByEmailOrPhone(ctx, "x@y.z", "000")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLeadRepo_ListStranded(t *testing.T) {
	ctx := context.Background()
	repos := New(testutil.NewTestDB(t))

	online := testutil.NewTestCounselor("Online")
	offline := testutil.NewTestCounselor("Offline")
	inactive := testutil.NewTestCounselor("Inactive", testutil.WithAvailability(models.AvailabilityInactive))
	for _, c := range []*models.Counselor{online, offline, inactive} {
		require.NoError(t, repos.Counselors.Create(ctx, c))
	}
	now := testNow()
	require.NoError(t, repos.Presence.Save(ctx, &models.CounselorPresence{
		CounselorID: online.ID, Status: models.PresenceActive, LastLoginAt: &now, LastActivityAt: &now,
	}))
	require.NoError(t, repos.Presence.Save(ctx, &models.CounselorPresence{
		CounselorID: offline.ID, Status: models.PresenceOffline, LastLoginAt: &now,
	}))
	require.NoError(t, repos.Presence.Save(ctx, &models.CounselorPresence{
		CounselorID: inactive.ID, Status: models.PresenceActive, LastLoginAt: &now,
	}))

	healthy := testutil.NewTestLead("Healthy", testutil.WithCounselor(online.ID, true))
	strandedOffline := testutil.NewTestLead("Stranded1", testutil.WithCounselor(offline.ID, true))
	strandedInactive := testutil.NewTestLead("Stranded2", testutil.WithCounselor(inactive.ID, false))
	closed := testutil.NewTestLead("Closed", testutil.WithCounselor(offline.ID, true),
		testutil.WithLeadStatus(models.LeadEnrolled))
	for _, l := range []*models.Lead{healthy, strandedOffline, strandedInactive, closed} {
		require.NoError(t, repos.Leads.Create(ctx, l))
	}

	stranded, err := repos.Leads.ListStranded(ctx)
	require.NoError(t, err)
	require.Len(t, stranded, 2)
	assert.Equal(t, strandedOffline.ID, stranded[0].ID)
	assert.Equal(t, strandedInactive.ID, stranded[1].ID)
}
