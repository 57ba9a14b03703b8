package handlers

import (
	"net/http"

	resp "admissions-crm/http/response"
	"admissions-crm/models"
	"admissions-crm/services/presence"
	"admissions-crm/utils"
)

// PresenceHandler serves the counselor desktop client and the admin
// presence views.
type PresenceHandler struct {
	tracker *presence.Tracker
}

func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

type presenceRequest struct {
	CounselorID int64 `json:"counselor_id" validate:"gte=0"`
}

type presenceOp func(r *http.Request, counselorID int64) (*models.CounselorPresence, error)

func (h *PresenceHandler) signal(w http.ResponseWriter, r *http.Request, op presenceOp, message string) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req presenceRequest
	if r.ContentLength != 0 {
		if err := decodeAndValidate(r, &req); err != nil {
			resp.Error(w, err, "Invalid request")
			return
		}
	}
	counselorID, err := actingCounselor(r, req.CounselorID)
	if err != nil {
		resp.Error(w, err, "Invalid request")
		return
	}

	p, err := op(r, counselorID)
	if err != nil {
		resp.Error(w, err, "Error updating presence")
		return
	}
	if p == nil {
		p = &models.CounselorPresence{CounselorID: counselorID, Status: models.PresenceOffline}
	}
	resp.SuccessResponse(w, http.StatusOK, message, p)
}

// Login marks the counselor ACTIVE.
// POST /presence/login
func (h *PresenceHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, func(r *http.Request, id int64) (*models.CounselorPresence, error) {
		return h.tracker.RecordLogin(r.Context(), id)
	}, "Login recorded")
}

// Heartbeat records activity. OFFLINE counselors stay OFFLINE until they
// log in again.
// POST /presence/heartbeat
func (h *PresenceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, func(r *http.Request, id int64) (*models.CounselorPresence, error) {
		return h.tracker.UpdateActivity(r.Context(), id)
	}, "Heartbeat recorded")
}

// Logout marks the counselor OFFLINE and releases imminent sessions.
// POST /presence/logout
func (h *PresenceHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, func(r *http.Request, id int64) (*models.CounselorPresence, error) {
		return h.tracker.RecordLogout(r.Context(), id)
	}, "Logout recorded")
}

// GetStatus returns a counselor's presence. Counselors read their own.
// GET /presence?counselor_id=
func (h *PresenceHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	var requested int64
	if r.URL.Query().Get("counselor_id") != "" {
		id, err := utils.ParseIDParam(r, "counselor_id")
		if err != nil {
			resp.ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		requested = id
	}
	counselorID, err := actingCounselor(r, requested)
	if err != nil {
		resp.Error(w, err, "Invalid request")
		return
	}

	status, err := h.tracker.GetPresenceStatus(r.Context(), counselorID)
	if err != nil {
		resp.Error(w, err, "Error fetching presence")
		return
	}
	resp.SuccessResponse(w, http.StatusOK, "Presence retrieved", status)
}

// GetActive lists ACTIVE counselors.
// GET /presence/active
func (h *PresenceHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	active, err := h.tracker.GetActiveCounselors(r.Context())
	if err != nil {
		resp.Error(w, err, "Error fetching active counselors")
		return
	}
	resp.SuccessResponse(w, http.StatusOK, "Active counselors retrieved", active)
}

// Sweep runs the inactivity sweep over all ACTIVE and AWAY counselors. A
// failed sweep still reports the counts of what it got through.
// POST /presence/sweep
func (h *PresenceHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	result, err := h.tracker.SweepInactive(r.Context())
	if err != nil {
		resp.ErrorWithData(w, err, "Inactivity sweep finished with errors", result)
		return
	}
	resp.SuccessResponse(w, http.StatusOK, "Inactivity sweep completed", result)
}
