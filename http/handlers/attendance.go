package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	resp "admissions-crm/http/response"
	"admissions-crm/services"
	"admissions-crm/services/presence"
	"admissions-crm/utils"
)

// AttendanceHandler serves daily attendance reads and exports.
type AttendanceHandler struct {
	tracker *presence.Tracker
}

func NewAttendanceHandler(tracker *presence.Tracker) *AttendanceHandler {
	return &AttendanceHandler{tracker: tracker}
}

// GetAttendance lists the attendance rows of a day (default today).
// GET /attendance?date=YYYY-MM-DD
func (h *AttendanceHandler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	date, err := utils.ParseDate(r, "date")
	if err != nil {
		resp.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.tracker.GetDailyAttendance(r.Context(), date)
	if err != nil {
		resp.Error(w, err, "Error fetching attendance")
		return
	}
	resp.SuccessResponse(w, http.StatusOK, fmt.Sprintf("Retrieved %d attendance records", len(rows)), rows)
}

// GetAbsent lists counselors with no attendance on a day (default today).
// GET /attendance/absent?date=YYYY-MM-DD
func (h *AttendanceHandler) GetAbsent(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	date, err := utils.ParseDate(r, "date")
	if err != nil {
		resp.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	absent, err := h.tracker.GetAbsentCounselors(r.Context(), date)
	if err != nil {
		resp.Error(w, err, "Error fetching absent counselors")
		return
	}
	resp.SuccessResponse(w, http.StatusOK, fmt.Sprintf("%s absent", plural(len(absent), "counselor")), absent)
}

// Export downloads the day's attendance as a workbook or PDF.
// GET /attendance/export?date=YYYY-MM-DD&format=xlsx|pdf
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	date, err := utils.ParseDate(r, "date")
	if err != nil {
		resp.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if date == "" {
		date = h.tracker.Today()
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}

	var buf bytes.Buffer
	contentType, err := services.ExportAttendance(r.Context(), h.tracker, &buf, date, format)
	if err != nil {
		resp.Error(w, err, "Error exporting attendance")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%s.%s"`, date, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
