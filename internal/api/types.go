package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-booking/internal/appointment"
	"github.com/clinicore/clinic-booking/internal/notify"
)

type DoctorResponse struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Specialty           string    `json:"specialty"`
	Description         *string   `json:"description,omitempty"`
	ConsultationMinutes int       `json:"consultation_duration_minutes"`
}

func toDoctorResponse(d appointment.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:                  d.ID,
		Name:                d.Name,
		Specialty:           d.Specialty,
		Description:         d.Description,
		ConsultationMinutes: d.ConsultationMinutes,
	}
}

type SlotsResponse struct {
	Date       string   `json:"date"`
	DoctorName string   `json:"doctor_name"`
	Slots      []string `json:"slots"`
	Message    string   `json:"message,omitempty"`
}

type BookAppointmentRequest struct {
	DoctorID     string  `json:"doctor_id"`
	PatientName  string  `json:"patient_name"`
	PatientPhone string  `json:"patient_phone"`
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	Reason       *string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID           uuid.UUID `json:"id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	PatientName  string    `json:"patient_name"`
	PatientPhone string    `json:"patient_phone,omitempty"`
	StartsAt     time.Time `json:"starts_at"`
	Status       string    `json:"status"`
	Reason       *string   `json:"reason,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		DoctorID:     a.DoctorID,
		PatientName:  a.PatientName,
		PatientPhone: a.PatientPhone,
		StartsAt:     a.StartsAt,
		Status:       string(a.Status),
		Reason:       a.Reason,
		Notes:        a.Notes,
	}
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	DoctorName      string `json:"doctor_name"`
	DoctorSpecialty string `json:"doctor_specialty"`
}

func toDetailResponses(details []appointment.Detail) []AppointmentDetailResponse {
	out := make([]AppointmentDetailResponse, 0, len(details))
	for i := range details {
		d := details[i]
		out = append(out, AppointmentDetailResponse{
			AppointmentResponse: toAppointmentResponse(&d.Appointment),
			DoctorName:          d.DoctorName,
			DoctorSpecialty:     d.DoctorSpecialty,
		})
	}
	return out
}

type UpdateAppointmentRequest struct {
	Status   *string `json:"status,omitempty"`
	DoctorID *string `json:"doctor_id,omitempty"`
	Date     *string `json:"date,omitempty"`
	Time     *string `json:"time,omitempty"`
	Reason   *string `json:"reason,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type NotesRequest struct {
	Notes string `json:"notes"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *appointment.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Reply   string        `json:"reply"`
	History []ChatMessage `json:"history"`
}

type CreateNotificationRequest struct {
	UserID  string `json:"user_id"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Channel string `json:"channel,omitempty"`
}

type NotificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Channel   string     `json:"channel"`
	Subject   string     `json:"subject"`
	Message   string     `json:"message"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

func toNotificationResponse(n *notify.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Channel:   n.Channel,
		Subject:   n.Subject,
		Message:   n.Message,
		Status:    n.Status,
		CreatedAt: n.CreatedAt,
		SentAt:    n.SentAt,
	}
}

type SuggestionRequest struct {
	Context   *string `json:"context,omitempty"`
	Specialty *string `json:"specialty,omitempty"`
	Date      *string `json:"date,omitempty"`
}

type SpecialtySuggestion struct {
	Specialty string  `json:"specialty"`
	Score     float64 `json:"score"`
}

type SuggestionResponse struct {
	Success     bool                  `json:"success"`
	Suggestions []SpecialtySuggestion `json:"suggestions"`
	Message     string                `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
