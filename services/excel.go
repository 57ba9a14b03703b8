package services

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"admissions-crm/logger"
	"admissions-crm/models"

	"github.com/xuri/excelize/v2"
)

// SkippedRow is a spreadsheet row that could not become a lead.
type SkippedRow struct {
	Row    int    `json:"row,omitempty"`
	Reason string `json:"reason"`
}

// ParseLeadsExcel reads the first sheet of a workbook into leads. Columns are
// found by header name, so their order does not matter.
func ParseLeadsExcel(r io.Reader) ([]models.Lead, []SkippedRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetList := f.GetSheetList()
	if len(sheetList) == 0 {
		return nil, nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheetList[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no data in sheet")
	}

	cols := detectColumns(rows[0])
	logger.Debug("Parsing sheet %s, detected columns %v", sheetList[0], cols)
	if cols["name"] < 0 || cols["email"] < 0 || cols["phone"] < 0 {
		return nil, nil, fmt.Errorf("header row must contain name, email and phone columns")
	}

	var (
		leads   []models.Lead
		skipped []SkippedRow
	)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 {
			continue
		}

		lead := models.Lead{
			Name:              extractField(row, cols["name"]),
			Email:             extractField(row, cols["email"]),
			Phone:             extractField(row, cols["phone"]),
			Education:         extractField(row, cols["education"]),
			LeadSource:        extractField(row, cols["lead_source"]),
			PreferredLanguage: extractField(row, cols["preferred_language"]),
			Status:            models.LeadNew,
		}
		if lead.Name == "" || lead.Email == "" || lead.Phone == "" {
			skipped = append(skipped, SkippedRow{Row: i + 1, Reason: "missing name, email or phone"})
			continue
		}
		if raw := extractField(row, cols["course_id"]); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				skipped = append(skipped, SkippedRow{Row: i + 1, Reason: fmt.Sprintf("invalid course id %q", raw)})
				continue
			}
			lead.CourseID = &id
		}
		if lead.LeadSource == "" {
			lead.LeadSource = "website"
		}
		leads = append(leads, lead)
	}
	return leads, skipped, nil
}

// detectColumns finds column indices by matching header names
func detectColumns(headers []string) map[string]int {
	indices := map[string]int{
		"name":               -1,
		"email":              -1,
		"phone":              -1,
		"education":          -1,
		"lead_source":        -1,
		"preferred_language": -1,
		"course_id":          -1,
	}

	for i, header := range headers {
		switch strings.ToLower(strings.TrimSpace(header)) {
		case "name", "student name", "full name":
			indices["name"] = i
		case "email", "e-mail", "email address":
			indices["email"] = i
		case "phone", "mobile", "phone number", "contact number":
			indices["phone"] = i
		case "education", "qualification", "degree", "educational qualification":
			indices["education"] = i
		case "lead_source", "lead source", "source":
			indices["lead_source"] = i
		case "preferred_language", "preferred language", "language":
			indices["preferred_language"] = i
		case "course_id", "course id", "course":
			indices["course_id"] = i
		}
	}
	return indices
}

// extractField safely extracts a field from a row
func extractField(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

var attendanceHeaders = []string{"Counselor ID", "Counselor", "Status", "Login", "Logout", "Active Minutes"}

// WriteAttendanceExcel writes the attendance of one day, followed by the
// counselors who never logged in, as an xlsx workbook.
func WriteAttendanceExcel(w io.Writer, date string, rows []*models.DailyAttendance, absent []*models.Counselor) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Attendance " + date
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := writeRow(f, sheet, 1, toAny(attendanceHeaders)); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "F1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	line := 2
	for _, a := range rows {
		values := []any{a.CounselorID, a.CounselorName, a.Status, formatClock(a.LoginTime), formatClock(a.LogoutTime), a.ActiveMinutes}
		if err := writeRow(f, sheet, line, values); err != nil {
			return err
		}
		line++
	}
	for _, c := range absent {
		if err := writeRow(f, sheet, line, []any{c.ID, c.Name, models.AttendanceAbsent, "", "", 0}); err != nil {
			return err
		}
		line++
	}

	if err := f.SetColWidth(sheet, "B", "B", 28); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("writing cell %s: %w", cell, err)
		}
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
