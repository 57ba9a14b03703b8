package http

import (
	"net/http"

	"admissions-crm/cache"
	"admissions-crm/http/handlers"
	"admissions-crm/http/middleware"
	"admissions-crm/http/response"
	"admissions-crm/repository"
	"admissions-crm/services/assignment"
	"admissions-crm/services/kafka"
	"admissions-crm/services/presence"
	"admissions-crm/services/reassignment"
)

// Deps are the services the routes are served by.
type Deps struct {
	Repos       *repository.Repos
	Engine      *assignment.Engine
	Tracker     *presence.Tracker
	Coordinator *reassignment.Coordinator
	Courses     *cache.CourseCache
	DLQ         *kafka.DLQService
	Auth        *middleware.Auth
}

// SetupRoutes configures all HTTP routes and middleware
func SetupRoutes(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	leads := handlers.NewLeadHandler(d.Repos, d.Engine)
	counselors := handlers.NewCounselorHandler(d.Repos)
	courses := handlers.NewCourseHandler(d.Repos, d.Courses)
	presenceH := handlers.NewPresenceHandler(d.Tracker)
	attendance := handlers.NewAttendanceHandler(d.Tracker)
	dashboard := handlers.NewDashboardHandler(d.Coordinator)
	dlq := handlers.NewDLQHandler(d.DLQ)

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.EnableCORS(d.Auth.RequireAuth(h, middleware.RoleAdmin))
	}
	staff := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.EnableCORS(d.Auth.RequireAuth(h, middleware.RoleAdmin, middleware.RoleCounselor))
	}
	// open is for the public inquiry form and health checks.
	open := middleware.EnableCORS

	mux.HandleFunc("/health", open(func(w http.ResponseWriter, r *http.Request) {
		response.SuccessResponse(w, http.StatusOK, "ok", nil)
	}))

	// Lead Management APIs
	mux.HandleFunc("/leads", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			open(leads.CreateLead)(w, r)
			return
		}
		staff(leads.GetLeads)(w, r)
	})
	mux.HandleFunc("/leads/upload", admin(leads.UploadLeads))
	mux.HandleFunc("/leads/reassign", admin(leads.ReassignLead))

	// Counselor Management APIs
	mux.HandleFunc("/counselors", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			admin(counselors.CreateCounselor)(w, r)
		case http.MethodPut:
			admin(counselors.UpdateCounselor)(w, r)
		default:
			staff(counselors.GetCounselors)(w, r)
		}
	})

	// Course Management APIs
	mux.HandleFunc("/courses", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			admin(courses.CreateCourse)(w, r)
		case http.MethodPut:
			admin(courses.UpdateCourse)(w, r)
		default:
			open(courses.GetCourses)(w, r)
		}
	})
	mux.HandleFunc("/course", open(courses.GetCourseByID))

	// Presence APIs
	mux.HandleFunc("/presence/login", staff(presenceH.Login))
	mux.HandleFunc("/presence/heartbeat", staff(presenceH.Heartbeat))
	mux.HandleFunc("/presence/logout", staff(presenceH.Logout))
	mux.HandleFunc("/presence", staff(presenceH.GetStatus))
	mux.HandleFunc("/presence/active", admin(presenceH.GetActive))
	mux.HandleFunc("/presence/sweep", admin(presenceH.Sweep))

	// Attendance APIs
	mux.HandleFunc("/attendance", admin(attendance.GetAttendance))
	mux.HandleFunc("/attendance/absent", admin(attendance.GetAbsent))
	mux.HandleFunc("/attendance/export", admin(attendance.Export))

	// Operations dashboard APIs
	mux.HandleFunc("/dashboard", admin(dashboard.GetDashboard))
	mux.HandleFunc("/dashboard/reassignments", admin(dashboard.GetReassignments))
	mux.HandleFunc("/dashboard/reassignments/auto", admin(dashboard.AutoReassign))

	// DLQ Management APIs
	mux.HandleFunc("/api/dlq/messages", admin(dlq.GetDLQMessages))
	mux.HandleFunc("/api/dlq/messages/retry", admin(dlq.RetryDLQMessage))
	mux.HandleFunc("/api/dlq/messages/resolve", admin(dlq.ResolveDLQMessage))
	mux.HandleFunc("/api/dlq/stats", admin(dlq.GetDLQStats))

	return mux
}
