package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"inscribo/internal/delivery/http/controllers"
	"inscribo/internal/delivery/http/middleware"
	"inscribo/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(
	verifier domain.TokenVerifier,
	authController *controllers.AuthController,
	eventController *controllers.EventController,
	enrollmentController *controllers.EnrollmentController,
) *http.ServeMux {
	mux := http.NewServeMux()

	auth := middleware.RequireAuth(verifier)
	organizer := middleware.RequireRole(domain.RoleOrganizer, domain.RoleAdmin)
	admin := middleware.RequireRole(domain.RoleAdmin)

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)

	// Profile
	mux.HandleFunc("GET /users/me", auth(authController.Me))
	mux.HandleFunc("PATCH /users/me", auth(authController.UpdateMe))
	mux.HandleFunc("GET /users/me/enrollments", auth(enrollmentController.ListMine))

	// Event catalog
	mux.HandleFunc("GET /events", eventController.List)
	mux.HandleFunc("GET /events/{eventID}", eventController.Get)
	mux.HandleFunc("POST /events", auth(organizer(eventController.Create)))
	mux.HandleFunc("PATCH /events/{eventID}", auth(organizer(eventController.Update)))
	mux.HandleFunc("DELETE /events/{eventID}", auth(organizer(eventController.Delete)))
	mux.HandleFunc("GET /events/{eventID}/statistics", auth(organizer(eventController.GetStatistics)))

	// Admission
	mux.HandleFunc("POST /events/{eventID}/enrollments", auth(enrollmentController.RequestEnrollment))

	// Enrollment lifecycle
	mux.HandleFunc("GET /enrollments", auth(admin(enrollmentController.List)))
	mux.HandleFunc("GET /enrollments/{enrollmentID}", auth(enrollmentController.Get))
	mux.HandleFunc("POST /enrollments/{enrollmentID}/cancel", auth(enrollmentController.Cancel))
	mux.HandleFunc("PATCH /enrollments/{enrollmentID}/state", auth(admin(enrollmentController.UpdateState)))
	mux.HandleFunc("DELETE /enrollments/{enrollmentID}", auth(admin(enrollmentController.Delete)))

	// Payments
	mux.HandleFunc("POST /enrollments/{enrollmentID}/payments", auth(enrollmentController.Pay))
	mux.HandleFunc("GET /enrollments/{enrollmentID}/payments", auth(enrollmentController.ListPayments))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
