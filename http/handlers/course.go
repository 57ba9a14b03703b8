package handlers

import (
	"fmt"
	"net/http"

	"admissions-crm/cache"
	resp "admissions-crm/http/response"
	"admissions-crm/logger"
	"admissions-crm/models"
	"admissions-crm/repository"
	"admissions-crm/utils"
)

// CourseHandler serves the course catalogue. Single-course reads go
// through the course cache; writes invalidate it.
type CourseHandler struct {
	repos *repository.Repos
	cache *cache.CourseCache
}

func NewCourseHandler(repos *repository.Repos, courses *cache.CourseCache) *CourseHandler {
	return &CourseHandler{repos: repos, cache: courses}
}

type courseRequest struct {
	ID          int64  `json:"id"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
	Duration    string `json:"duration" validate:"max=50"`
	IsActive    *bool  `json:"is_active"`
}

// GetCourses retrieves active courses, or all with ?all=true
// GET /courses
func (h *CourseHandler) GetCourses(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	courses, err := h.repos.Courses.List(r.Context(), r.URL.Query().Get("all") != "true")
	if err != nil {
		resp.Error(w, err, "Error fetching courses")
		return
	}

	out := make([]models.CourseResponse, len(courses))
	for i, c := range courses {
		out[i] = c.ToResponse()
	}
	resp.SuccessResponse(w, http.StatusOK, fmt.Sprintf("Retrieved %d courses", len(courses)), out)
}

// GetCourseByID retrieves a specific course by ID
// GET /course?id=
func (h *CourseHandler) GetCourseByID(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	courseID, err := utils.ParseIDParam(r, "id")
	if err != nil {
		resp.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.cache.Get(r.Context(), courseID)
	if err != nil {
		resp.Error(w, err, "Error fetching course")
		return
	}
	resp.SuccessResponse(w, http.StatusOK, "Course retrieved", course.ToResponse())
}

// CreateCourse creates a new course (admin endpoint)
// POST /courses
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req courseRequest
	if err := decodeAndValidate(r, &req); err != nil {
		resp.Error(w, err, "Invalid request")
		return
	}

	course := &models.Course{
		Name:        req.Name,
		Description: req.Description,
		Duration:    req.Duration,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := h.repos.Courses.Create(r.Context(), course); err != nil {
		resp.Error(w, err, "Error creating course")
		return
	}

	resp.SuccessResponse(w, http.StatusCreated, "Course created successfully", course.ToResponse())
}

// UpdateCourse updates an existing course (admin endpoint)
// PUT /courses
func (h *CourseHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPut) {
		return
	}

	var req courseRequest
	if err := decodeAndValidate(r, &req); err != nil {
		resp.Error(w, err, "Invalid request")
		return
	}
	if req.ID <= 0 {
		resp.ErrorResponse(w, http.StatusBadRequest, "Course ID is required")
		return
	}

	course := &models.Course{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Duration:    req.Duration,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := h.repos.Courses.Update(r.Context(), course); err != nil {
		resp.Error(w, err, "Error updating course")
		return
	}
	h.cache.Invalidate(course.ID)
	logger.Info("Course %d updated, cache entry invalidated", course.ID)

	resp.SuccessResponse(w, http.StatusOK, "Course updated successfully", map[string]interface{}{
		"course_id": course.ID,
	})
}
