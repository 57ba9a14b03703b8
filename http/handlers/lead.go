package handlers

import (
	"context"
	"fmt"
	"net/http"

	apperrors "admissions-crm/errors"
	resp "admissions-crm/http/response"
	"admissions-crm/logger"
	"admissions-crm/models"
	"admissions-crm/repository"
	"admissions-crm/services"
	"admissions-crm/services/assignment"
	"admissions-crm/utils"
)

const maxUploadBytes = 10 << 20

// LeadHandler serves lead intake, listing and reassignment.
type LeadHandler struct {
	repos  *repository.Repos
	engine *assignment.Engine
}

func NewLeadHandler(repos *repository.Repos, engine *assignment.Engine) *LeadHandler {
	return &LeadHandler{repos: repos, engine: engine}
}

type createLeadRequest struct {
	Name              string `json:"name" validate:"required,max=100"`
	Email             string `json:"email" validate:"required,email"`
	Phone             string `json:"phone" validate:"required,phone"`
	Education         string `json:"education" validate:"max=200"`
	LeadSource        string `json:"lead_source" validate:"lead_source"`
	PreferredLanguage string `json:"preferred_language" validate:"max=50"`
	CourseID          *int64 `json:"course_id" validate:"omitempty,gt=0"`
}

type leadAssignmentResponse struct {
	Lead       models.LeadResponse `json:"lead"`
	Assignment string              `json:"assignment"`
	Score      int                 `json:"score"`
}

// CreateLead stores a lead and auto-assigns it. Assignment problems never
// reject the lead; it is stored unassigned with the reason.
// POST /leads
func (h *LeadHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req createLeadRequest
	if err := decodeAndValidate(r, &req); err != nil {
		resp.Error(w, err, "Invalid request")
		return
	}
	if req.LeadSource == "" {
		req.LeadSource = utils.SourceWebsite
	}

	lead := &models.Lead{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Education:         req.Education,
		LeadSource:        req.LeadSource,
		PreferredLanguage: req.PreferredLanguage,
		CourseID:          req.CourseID,
	}
	created, out, err := h.intake(r.Context(), lead)
	if err != nil {
		resp.Error(w, err, "Error creating lead")
		return
	}

	resp.SuccessResponse(w, http.StatusCreated, "Lead created successfully", leadAssignmentResponse{
		Lead:       h.toResponse(r.Context(), created),
		Assignment: out.Kind.String(),
		Score:      out.Score,
	})
}

func (h *LeadHandler) intake(ctx context.Context, lead *models.Lead) (*models.Lead, assignment.Outcome, error) {
	exists, err := h.repos.Leads.ExistsByEmailOrPhone(ctx, lead.Email, lead.Phone)
	if err != nil {
		return nil, assignment.Outcome{}, err
	}
	if exists {
		return nil, assignment.Outcome{}, apperrors.E(apperrors.Conflict, "lead already exists with this email or phone")
	}
	return h.engine.Intake(ctx, lead)
}

// GetLeads lists leads with optional filters.
// GET /leads?status=&counselor_id=&unassigned=true&created_after=&created_before=&limit=
func (h *LeadHandler) GetLeads(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	timeParams, err := utils.ParseTimeFilters(r)
	if err != nil {
		resp.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	counselorID, err := utils.ParseOptionalID(r, "counselor_id")
	if err != nil {
		resp.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	leads, err := h.repos.Leads.List(r.Context(), repository.LeadFilter{
		CreatedAfter:  timeParams.CreatedAfter,
		CreatedBefore: timeParams.CreatedBefore,
		Status:        r.URL.Query().Get("status"),
		CounselorID:   counselorID,
		Unassigned:    r.URL.Query().Get("unassigned") == "true",
		Limit:         utils.ParseLimit(r),
	})
	if err != nil {
		resp.Error(w, err, "Error fetching leads")
		return
	}

	names, err := h.counselorNames(r.Context())
	if err != nil {
		resp.Error(w, err, "Error fetching leads")
		return
	}
	resp.SuccessResponse(w, http.StatusOK, fmt.Sprintf("Retrieved %s", plural(len(leads), "lead")),
		utils.ConvertLeadsToResponse(leads, names))
}

// UploadLeads handles bulk lead upload via Excel file
// POST /leads/upload (multipart field "file")
func (h *LeadHandler) UploadLeads(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("Error getting form file: %v", err)
		resp.ErrorResponse(w, http.StatusBadRequest, "Invalid file")
		return
	}
	defer file.Close()
	logger.Info("Processing file upload: %s", header.Filename)

	leads, skipped, err := services.ParseLeadsExcel(file)
	if err != nil {
		resp.ErrorResponse(w, http.StatusBadRequest, "Error parsing Excel: "+err.Error())
		return
	}

	result := h.ImportLeads(r.Context(), leads)
	result.Skipped = append(skipped, result.Skipped...)
	resp.SuccessResponse(w, http.StatusOK,
		fmt.Sprintf("Successfully uploaded %s", plural(result.Created, "lead")), result)
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Total      int                   `json:"total_count"`
	Created    int                   `json:"success_count"`
	Assigned   int                   `json:"assigned_count"`
	Unassigned int                   `json:"unassigned_count"`
	Skipped    []services.SkippedRow `json:"skipped,omitempty"`
}

// ImportLeads validates, de-duplicates and takes in parsed spreadsheet
// leads one at a time. A failing lead is reported by email and does not
// stop the rest.
func (h *LeadHandler) ImportLeads(ctx context.Context, leads []models.Lead) ImportResult {
	leads = utils.DeduplicateLeads(leads)
	result := ImportResult{Total: len(leads)}

	for i := range leads {
		lead := leads[i]
		if lead.LeadSource == "" {
			lead.LeadSource = utils.SourceWebsite
		}
		if err := utils.ValidateLead(&lead); err != nil {
			result.Skipped = append(result.Skipped, services.SkippedRow{Reason: lead.Email + ": validation failed: " + err.Error()})
			continue
		}
		_, out, err := h.intake(ctx, &lead)
		if err != nil {
			logger.Warn("Failed to import lead %s: %v", lead.Email, err)
			result.Skipped = append(result.Skipped, services.SkippedRow{Reason: lead.Email + ": " + err.Error()})
			continue
		}
		result.Created++
		if out.Kind == assignment.Assigned {
			result.Assigned++
		} else {
			result.Unassigned++
		}
	}

	logger.Info("Bulk upload completed: %d successful, %d skipped", result.Created, len(result.Skipped))
	return result
}

type reassignRequest struct {
	LeadID      int64  `json:"lead_id" validate:"required,gt=0"`
	CounselorID *int64 `json:"counselor_id" validate:"omitempty,gt=0"`
	Reason      string `json:"reason" validate:"required,max=500"`
}

// ReassignLead moves a lead to another counselor, or unassigns it when
// counselor_id is omitted.
// POST /leads/reassign
func (h *LeadHandler) ReassignLead(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req reassignRequest
	if err := decodeAndValidate(r, &req); err != nil {
		resp.Error(w, err, "Invalid request")
		return
	}

	lead, err := h.engine.ReassignLead(r.Context(), req.LeadID, req.CounselorID, req.Reason)
	if err != nil {
		resp.Error(w, err, "Error reassigning lead")
		return
	}
	resp.SuccessResponse(w, http.StatusOK, "Lead reassigned", h.toResponse(r.Context(), lead))
}

func (h *LeadHandler) counselorNames(ctx context.Context) (map[int64]string, error) {
	counselors, err := h.repos.Counselors.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(counselors))
	for _, c := range counselors {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (h *LeadHandler) toResponse(ctx context.Context, lead *models.Lead) models.LeadResponse {
	out := lead.ToResponse()
	out.CounselorName = utils.CounselorName(lead.AssignedCounselorID, nil)
	if lead.AssignedCounselorID != nil {
		if c, err := h.repos.Counselors.GetByID(ctx, *lead.AssignedCounselorID); err == nil {
			out.CounselorName = c.Name
		}
	}
	return out
}
