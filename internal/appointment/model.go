package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSecretaire Role = "secretaire"
	RoleMedecin    Role = "medecin"
	RolePatient    Role = "patient"
)

// Staff reports whether the role may manage appointments on behalf of the clinic.
func (r Role) Staff() bool {
	return r == RoleAdmin || r == RoleSecretaire
}

// Identity is the opaque current-user value handed in by the auth layer.
// The zero value means anonymous (public booking flow).
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

func (id Identity) Anonymous() bool {
	return id.UserID == uuid.Nil
}

type User struct {
	ID           uuid.UUID
	Name         string
	Email        *string
	Phone        string
	PasswordHash *string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
}

type Doctor struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	Name                string
	Specialty           string
	Description         *string
	ConsultationMinutes int
	IsAvailable         bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (d Doctor) ConsultationDuration() time.Duration {
	return time.Duration(d.ConsultationMinutes) * time.Minute
}

type Appointment struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	PatientID    uuid.UUID
	PatientName  string
	PatientPhone string
	StartsAt     time.Time
	Status       Status
	Reason       *string
	Notes        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Detail is an appointment hydrated with the joined doctor identity,
// used by the dashboard listings.
type Detail struct {
	Appointment
	DoctorName      string
	DoctorSpecialty string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
