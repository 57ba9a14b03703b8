package handlers

import (
	"fmt"
	"net/http"

	resp "admissions-crm/http/response"
	"admissions-crm/models"
	"admissions-crm/repository"
)

// CounselorHandler serves counselor administration.
type CounselorHandler struct {
	repos *repository.Repos
}

func NewCounselorHandler(repos *repository.Repos) *CounselorHandler {
	return &CounselorHandler{repos: repos}
}

type counselorRequest struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name" validate:"required,max=100"`
	Email        string   `json:"email" validate:"required,email"`
	Phone        string   `json:"phone" validate:"omitempty,phone"`
	Expertise    []string `json:"expertise" validate:"dive,required"`
	Languages    []string `json:"languages" validate:"dive,required"`
	Availability string   `json:"availability" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	MaxCapacity  int      `json:"max_capacity" validate:"gte=1"`
}

func (req *counselorRequest) toModel() *models.Counselor {
	return &models.Counselor{
		ID:           req.ID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Expertise:    req.Expertise,
		Languages:    req.Languages,
		Availability: req.Availability,
		MaxCapacity:  req.MaxCapacity,
	}
}

// GetCounselors lists all counselors with their current load.
// GET /counselors
func (h *CounselorHandler) GetCounselors(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	counselors, err := h.repos.Counselors.List(r.Context())
	if err != nil {
		resp.Error(w, err, "Error fetching counselors")
		return
	}
	resp.SuccessResponse(w, http.StatusOK, fmt.Sprintf("Retrieved %s", plural(len(counselors), "counselor")), counselors)
}

// CreateCounselor creates a counselor (admin endpoint)
// POST /counselors
func (h *CounselorHandler) CreateCounselor(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req counselorRequest
	if err := decodeAndValidate(r, &req); err != nil {
		resp.Error(w, err, "Invalid request")
		return
	}

	c := req.toModel()
	c.ID = 0
	if err := h.repos.Counselors.Create(r.Context(), c); err != nil {
		resp.Error(w, err, "Error creating counselor")
		return
	}
	resp.SuccessResponse(w, http.StatusCreated, "Counselor created successfully", c)
}

// UpdateCounselor replaces the editable fields of a counselor. Load is
// owned by the assignment engine and cannot be set here.
// PUT /counselors
func (h *CounselorHandler) UpdateCounselor(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPut) {
		return
	}
	var req counselorRequest
	if err := decodeAndValidate(r, &req); err != nil {
		resp.Error(w, err, "Invalid request")
		return
	}
	if req.ID <= 0 {
		resp.ErrorResponse(w, http.StatusBadRequest, "Counselor ID is required")
		return
	}

	c := req.toModel()
	if c.Availability == "" {
		c.Availability = models.AvailabilityActive
	}
	if err := h.repos.Counselors.Update(r.Context(), c); err != nil {
		resp.Error(w, err, "Error updating counselor")
		return
	}
	updated, err := h.repos.Counselors.GetByID(r.Context(), c.ID)
	if err != nil {
		resp.Error(w, err, "Error updating counselor")
		return
	}
	resp.SuccessResponse(w, http.StatusOK, "Counselor updated successfully", updated)
}
