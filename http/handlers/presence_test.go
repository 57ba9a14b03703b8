package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"admissions-crm/models"
	"admissions-crm/repository"
	"admissions-crm/services/presence"
	"admissions-crm/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceHandler_SweepReportsPartialResult(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	repos := repository.New(database)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	seen := now.Add(-20 * time.Minute)
	for _, name := range []string{"Asha", "Ravi"} {
		c := testutil.NewTestCounselor(name)
		require.NoError(t, repos.Counselors.Create(ctx, c))
		require.NoError(t, repos.Presence.Save(ctx, &models.CounselorPresence{
			CounselorID:    c.ID,
			Status:         models.PresenceActive,
			LastLoginAt:    &seen,
			LastActivityAt: &seen,
		}))
	}

	uow := &testutil.FailOnNthExecUoW{DB: database, FailOn: 1, Err: errors.New("disk full")}
	tracker := presence.NewTracker(database, uow, presence.WithClock(func() time.Time { return now }))
	h := NewPresenceHandler(tracker)

	rec := httptest.NewRecorder()
	h.Sweep(rec, httptest.NewRequest(http.MethodPost, "/presence/sweep", nil))

	var body struct {
		Status string               `json:"status"`
		Error  string               `json:"error"`
		Data   presence.SweepResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "Inactivity sweep finished with errors", body.Error)
	assert.Equal(t, presence.SweepResult{Checked: 2}, body.Data)
}
