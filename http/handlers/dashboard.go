package handlers

import (
	"fmt"
	"net/http"

	resp "admissions-crm/http/response"
	"admissions-crm/services/reassignment"
	"admissions-crm/utils"
)

// DashboardHandler serves the operations dashboard.
type DashboardHandler struct {
	coordinator *reassignment.Coordinator
}

func NewDashboardHandler(c *reassignment.Coordinator) *DashboardHandler {
	return &DashboardHandler{coordinator: c}
}

// GetDashboard returns presence counts and reassignment backlog.
// GET /dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	dash, err := h.coordinator.Dashboard(r.Context())
	if err != nil {
		resp.Error(w, err, "Error building dashboard")
		return
	}
	resp.SuccessResponse(w, http.StatusOK, "Dashboard", dash)
}

// GetReassignments lists sessions waiting for a new counselor and leads
// stranded with an unavailable one.
// GET /dashboard/reassignments
func (h *DashboardHandler) GetReassignments(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	pending, err := h.coordinator.PendingReassignments(r.Context())
	if err != nil {
		resp.Error(w, err, "Error fetching pending reassignments")
		return
	}
	stranded, err := h.coordinator.StrandedLeads(r.Context())
	if err != nil {
		resp.Error(w, err, "Error fetching stranded leads")
		return
	}
	resp.SuccessResponse(w, http.StatusOK,
		fmt.Sprintf("%d pending sessions, %d stranded leads", len(pending), len(stranded)),
		map[string]interface{}{
			"pending_sessions": pending,
			"stranded_leads":   stranded,
		})
}

// AutoReassign runs auto-assignment over unassigned NEW leads.
// POST /dashboard/reassignments/auto?limit=
func (h *DashboardHandler) AutoReassign(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	result, err := h.coordinator.AutoReassignUnassigned(r.Context(), utils.ParseLimit(r))
	if err != nil {
		resp.Error(w, err, "Error reassigning leads")
		return
	}
	resp.SuccessResponse(w, http.StatusOK,
		fmt.Sprintf("Assigned %d of %d unassigned leads", result.Assigned, result.Checked), result)
}
