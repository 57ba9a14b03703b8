package services

import (
	"context"
	"fmt"
	"io"
	"time"

	apperrors "admissions-crm/errors"
	"admissions-crm/models"

	"github.com/jung-kurt/gofpdf"
)

// formatClock renders a timestamp as HH:MM UTC, or "-" when missing.
func formatClock(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("15:04")
}

// WriteAttendancePDF renders the daily attendance report.
func WriteAttendancePDF(w io.Writer, date string, rows []*models.DailyAttendance, absent []*models.Counselor) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Counselor Attendance - %s", date))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(40, 8, fmt.Sprintf("Logged in: %d    Absent: %d", len(rows), len(absent)))
	pdf.Ln(10)

	widths := []float64{20, 60, 25, 25, 25, 30}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range attendanceHeaders {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	line := func(cells ...string) {
		for i, c := range cells {
			pdf.CellFormat(widths[i], 7, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	for _, a := range rows {
		line(fmt.Sprint(a.CounselorID), a.CounselorName, a.Status,
			formatClock(a.LoginTime), formatClock(a.LogoutTime), fmt.Sprint(a.ActiveMinutes))
	}
	for _, c := range absent {
		line(fmt.Sprint(c.ID), c.Name, models.AttendanceAbsent, "-", "-", "0")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing attendance pdf: %w", err)
	}
	return nil
}

// AttendanceSource is satisfied by *presence.Tracker.
type AttendanceSource interface {
	GetDailyAttendance(ctx context.Context, date string) ([]*models.DailyAttendance, error)
	GetAbsentCounselors(ctx context.Context, date string) ([]*models.Counselor, error)
}

// ExportAttendance renders date's attendance as "xlsx" or "pdf" and returns
// the content type.
func ExportAttendance(ctx context.Context, src AttendanceSource, w io.Writer, date, format string) (string, error) {
	rows, err := src.GetDailyAttendance(ctx, date)
	if err != nil {
		return "", err
	}
	absent, err := src.GetAbsentCounselors(ctx, date)
	if err != nil {
		return "", err
	}

	switch format {
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			WriteAttendanceExcel(w, date, rows, absent)
	case "pdf":
		return "application/pdf", WriteAttendancePDF(w, date, rows, absent)
	default:
		return "", apperrors.E(apperrors.Invalid, fmt.Sprintf("unsupported format %q (use xlsx or pdf)", format))
	}
}
