package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-booking/internal/scheduling"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned when the unique constraint on
	// (doctor_id, starts_at) for live statuses rejects an insert.
	ErrSlotTaken = errors.New("slot already taken")
)

// UpdateFields is the staff PATCH payload. Nil fields are left untouched.
// Status changes carry the expected previous status so the repository can
// apply them as a single compare-and-swap statement.
type UpdateFields struct {
	Status     *Status
	PrevStatus *Status
	DoctorID   *uuid.UUID
	StartsAt   *time.Time
	Reason     *string
	Notes      *string
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	ListDoctors(ctx context.Context, specialty string) ([]Doctor, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	GetDoctorSchedule(ctx context.Context, doctorID uuid.UUID) ([]scheduling.Rule, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByPhone(ctx context.Context, phone string) (*User, error)
	CreateUser(ctx context.Context, u User) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// Booked appointments in [from, to) that block slots, i.e. pending or confirmed.
	ListActiveAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)

	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, upd UpdateFields) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID, ifStatus Status) error

	ListAppointments(ctx context.Context, status *Status) ([]Detail, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Detail, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error)
	ListAppointmentsByPhone(ctx context.Context, phone string, from time.Time) ([]Detail, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
