package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/clinic-booking/internal/appointment"
	"github.com/clinicore/clinic-booking/internal/auth"
	"github.com/clinicore/clinic-booking/internal/metrics"
	"github.com/clinicore/clinic-booking/internal/notify"
)

// BookingService is the surface the handlers need from the appointment
// service; tests stub it.
type BookingService interface {
	Doctors(ctx context.Context, specialty string) ([]appointment.Doctor, error)
	Doctor(ctx context.Context, id uuid.UUID) (*appointment.Doctor, error)
	AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) (*appointment.Availability, error)
	Book(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error)
	Transition(ctx context.Context, id uuid.UUID, target appointment.Status, actor appointment.Identity) (*appointment.Appointment, error)
	CancelOwnPending(ctx context.Context, id uuid.UUID, actor appointment.Identity) error
	Update(ctx context.Context, id uuid.UUID, req appointment.UpdateRequest, actor appointment.Identity) (*appointment.Appointment, error)
	SetNotes(ctx context.Context, id uuid.UUID, notes string, actor appointment.Identity) (*appointment.Appointment, error)
	ListAll(ctx context.Context, status *appointment.Status) ([]appointment.Detail, error)
	ListForDoctorUser(ctx context.Context, userID uuid.UUID) ([]appointment.Detail, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]appointment.Detail, error)
	UpcomingForPhone(ctx context.Context, phone string) ([]appointment.Detail, error)
	Users(ctx context.Context) ([]appointment.User, error)
}

// UserDirectory resolves login credentials.
type UserDirectory interface {
	GetUserByEmail(ctx context.Context, email string) (*appointment.User, error)
}

// NotificationService queues placeholder notifications.
type NotificationService interface {
	Create(ctx context.Context, userID uuid.UUID, subject, message, channel string) (*notify.Notification, error)
}

type RouterConfig struct {
	Service       BookingService
	Users         UserDirectory
	Notifications NotificationService
	Sessions      *auth.Sessions
	Metrics       *metrics.HTTPMetrics
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(cfg.Sessions.Optional)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	// Public booking flow
	r.Get("/api/doctors", listDoctorsHandler(cfg.Service))
	r.Get("/api/doctors/{id}", getDoctorHandler(cfg.Service))
	r.Get("/api/doctors/{id}/slots", getSlotsHandler(cfg.Service))
	r.Post("/api/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/api/appointments", upcomingByPhoneHandler(cfg.Service))
	r.Delete("/api/appointments/{id}", deleteAppointmentHandler(cfg.Service))
	r.Post("/api/chat", chatHandler())

	// Sessions
	r.Post("/api/auth/login", loginHandler(cfg.Users, cfg.Sessions))
	r.Post("/api/auth/logout", logoutHandler(cfg.Sessions))
	r.Get("/api/auth/me", meHandler())

	// Dashboards
	r.Route("/api/admin", func(r chi.Router) {
		r.With(cfg.Sessions.Require(appointment.RoleAdmin)).
			Get("/users", listUsersHandler(cfg.Service))

		r.Group(func(r chi.Router) {
			r.Use(cfg.Sessions.Require(appointment.RoleAdmin, appointment.RoleSecretaire))
			r.Get("/appointments", listAppointmentsHandler(cfg.Service))
			r.Patch("/appointments/{id}", updateAppointmentHandler(cfg.Service))
			r.Post("/notifications", createNotificationHandler(cfg.Notifications))
			r.Post("/ml/placeholder", suggestionsHandler())
		})
	})

	r.Route("/api/doctor", func(r chi.Router) {
		r.Use(cfg.Sessions.Require(appointment.RoleMedecin))
		r.Get("/appointments", doctorAppointmentsHandler(cfg.Service))
		r.Patch("/appointments/{id}/notes", doctorNotesHandler(cfg.Service))
	})

	r.With(cfg.Sessions.Require(appointment.RolePatient)).
		Get("/api/patient/appointments", patientAppointmentsHandler(cfg.Service))

	return r
}

func parseIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}
