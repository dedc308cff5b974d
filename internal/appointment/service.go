package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/clinicore/clinic-booking/internal/redis"
	"github.com/clinicore/clinic-booking/internal/scheduling"
)

const (
	EventAppointmentCreated     = "APPOINTMENT_CREATED"
	EventAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentDeleted     = "APPOINTMENT_DELETED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrSlotUnavailable   = errors.New("slot no longer available")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("operation not permitted")
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Options carries the working-hours policy and clock for the service.
type Options struct {
	// DefaultWindows apply to doctors without a weekly schedule, weekdays only.
	DefaultWindows []scheduling.Window
	// Location is the clinic's timezone; booking dates and times are local to it.
	Location *time.Location
	// Now overrides the clock in tests.
	Now func() time.Time
}

type Service struct {
	repo           Repository
	locker         redisclient.Locker
	defaultWindows []scheduling.Window
	loc            *time.Location
	now            func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, opts Options) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:           repo,
		locker:         locker,
		defaultWindows: opts.DefaultWindows,
		loc:            loc,
		now:            now,
	}
}

// Doctors lists bookable doctors, optionally filtered by specialty substring.
func (s *Service) Doctors(ctx context.Context, specialty string) ([]Doctor, error) {
	doctors, err := s.repo.ListDoctors(ctx, specialty)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

func (s *Service) Doctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetDoctorByID(ctx, id)
}

// Availability is the slot listing for one doctor and date. An empty slot
// list is a valid answer; Message explains it to the booking page.
type Availability struct {
	Date       string
	DoctorName string
	Slots      []string
	Message    string
}

// AvailableSlots computes the bookable start times for (doctor, date).
// Slots are derived fresh on every call, never cached: bookings can change
// between two queries.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) (*Availability, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}

	today := s.today()
	if day.Before(today) {
		return nil, fmt.Errorf("%w: cannot list slots for a past date", ErrValidation)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	slots, worksToday, err := s.slotsFor(ctx, doctor, day, uuid.Nil)
	if err != nil {
		return nil, err
	}

	avail := &Availability{
		Date:       date,
		DoctorName: doctor.Name,
		Slots:      scheduling.FormatSlots(slots),
	}
	switch {
	case !worksToday:
		avail.Message = "Le médecin ne travaille pas ce jour-là"
	case len(slots) == 0:
		avail.Message = "Aucun créneau disponible pour cette date"
	}
	return avail, nil
}

// slotsFor returns the free slots for the doctor on the given day. The
// excludeID appointment is ignored in the occupancy check so a reschedule
// does not collide with its own current interval. The bool result reports
// whether the doctor works that day at all.
func (s *Service) slotsFor(ctx context.Context, doctor *Doctor, day time.Time, excludeID uuid.UUID) ([]time.Time, bool, error) {
	rules, err := s.repo.GetDoctorSchedule(ctx, doctor.ID)
	if err != nil {
		return nil, false, fmt.Errorf("load doctor schedule: %w", err)
	}

	windows := scheduling.WindowsFor(rules, s.defaultWindows, day.Weekday())
	if len(windows) == 0 {
		return nil, false, nil
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	active, err := s.repo.ListActiveAppointments(ctx, doctor.ID, dayStart, dayEnd)
	if err != nil {
		return nil, false, fmt.Errorf("load booked appointments: %w", err)
	}

	duration := doctor.ConsultationDuration()
	booked := make([]scheduling.Interval, 0, len(active))
	for _, a := range active {
		if a.ID == excludeID {
			continue
		}
		booked = append(booked, scheduling.Interval{Start: a.StartsAt, End: a.StartsAt.Add(duration)})
	}

	return scheduling.Slots(dayStart, duration, windows, booked, s.now()), true, nil
}

// BookingRequest is the public booking payload.
type BookingRequest struct {
	DoctorID     uuid.UUID
	PatientName  string
	PatientPhone string
	Date         string // YYYY-MM-DD
	Time         string // HH:MM
	Reason       *string
}

func (r BookingRequest) validate() error {
	switch {
	case r.DoctorID == uuid.Nil:
		return fmt.Errorf("%w: doctor_id is required", ErrValidation)
	case strings.TrimSpace(r.PatientName) == "":
		return fmt.Errorf("%w: patient_name is required", ErrValidation)
	case strings.TrimSpace(r.Date) == "":
		return fmt.Errorf("%w: date is required", ErrValidation)
	case strings.TrimSpace(r.Time) == "":
		return fmt.Errorf("%w: time is required", ErrValidation)
	}
	return nil
}

// Book creates a pending appointment for a requested slot.
//
// The "slot still free" re-check and the insert run inside a per slot
// distributed lock, so two clients racing for the same last slot cannot
// both commit. The partial unique index on (doctor_id, starts_at) backs
// this up at the store level. Booking is never retried automatically.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	doctor, err := s.repo.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	startsAt, err := time.ParseInLocation(dateLayout+" "+timeLayout, strings.TrimSpace(req.Date)+" "+strings.TrimSpace(req.Time), s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date or time format", ErrValidation)
	}

	day := time.Date(startsAt.Year(), startsAt.Month(), startsAt.Day(), 0, 0, 0, 0, s.loc)
	if day.Before(s.today()) {
		return nil, fmt.Errorf("%w: cannot book in the past", ErrValidation)
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, doctor.ID, startsAt, func(lockCtx context.Context) error {
		// Re-check inside the critical section: the slot listed to the
		// client may have been taken since.
		slots, _, err := s.slotsFor(lockCtx, doctor, day, uuid.Nil)
		if err != nil {
			return err
		}
		if !containsTime(slots, startsAt) {
			return ErrSlotUnavailable
		}

		patient, err := s.findOrCreatePatient(lockCtx, req.PatientName, req.PatientPhone)
		if err != nil {
			return err
		}

		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			ID:           uuid.New(),
			DoctorID:     doctor.ID,
			PatientID:    patient.ID,
			PatientName:  strings.TrimSpace(req.PatientName),
			PatientPhone: patient.Phone,
			StartsAt:     startsAt,
			Status:       StatusPending,
			Reason:       req.Reason,
		})
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return ErrSlotUnavailable
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"doctor_id":  doctor.ID.String(),
			"patient_id": patient.ID.String(),
			"starts_at":  startsAt,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

func (s *Service) findOrCreatePatient(ctx context.Context, name, phone string) (*User, error) {
	phone = strings.TrimSpace(phone)
	if phone != "" {
		existing, err := s.repo.FindUserByPhone(ctx, phone)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("find patient: %w", err)
		}
	} else {
		phone = "0000000000"
	}

	created, err := s.repo.CreateUser(ctx, User{
		ID:       uuid.New(),
		Name:     strings.TrimSpace(name),
		Phone:    phone,
		Role:     RolePatient,
		IsActive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return created, nil
}

// Transition applies a status change after checking both the lifecycle
// table and the actor's write policy. Illegal transitions are rejected,
// never silently ignored.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target Status, actor Identity) (*Appointment, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, target)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Anonymous() || !roleMayTransition(actor.Role, target) {
		return nil, fmt.Errorf("%w: role %q may not set status %q", ErrForbidden, actor.Role, target)
	}
	if actor.Role == RolePatient && appt.PatientID != actor.UserID {
		return nil, fmt.Errorf("%w: not the owner of this appointment", ErrForbidden)
	}

	if !CanTransition(appt.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, target)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, target)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with a concurrent status change.
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, target)
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, updated.ID, eventForStatus(target), map[string]any{
		"from": string(appt.Status),
		"role": string(actor.Role),
	})

	return updated, nil
}

// CancelOwnPending removes (not cancel-flags) the caller's own appointment
// while it is still pending. Any other state or requester is rejected.
func (s *Service) CancelOwnPending(ctx context.Context, id uuid.UUID, actor Identity) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}

	if actor.Anonymous() || appt.PatientID != actor.UserID {
		return fmt.Errorf("%w: not the owner of this appointment", ErrForbidden)
	}
	if appt.Status != StatusPending {
		return fmt.Errorf("%w: only pending appointments can be removed", ErrInvalidTransition)
	}

	if err := s.repo.DeleteAppointment(ctx, id, StatusPending); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("%w: only pending appointments can be removed", ErrInvalidTransition)
		}
		return fmt.Errorf("delete appointment: %w", err)
	}

	s.logEvent(ctx, id, EventAppointmentDeleted, map[string]any{
		"patient_id": actor.UserID.String(),
	})

	return nil
}

// UpdateRequest is the staff PATCH payload; nil fields are left untouched.
type UpdateRequest struct {
	Status   *Status
	DoctorID *uuid.UUID
	Date     *string
	Time     *string
	Reason   *string
	Notes    *string
}

// Update applies a staff edit as a single all-or-nothing mutation. A status
// change goes through the transition table; a reschedule re-validates the
// new slot against current availability inside the slot lock.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest, actor Identity) (*Appointment, error) {
	if !actor.Role.Staff() {
		return nil, fmt.Errorf("%w: staff only", ErrForbidden)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	upd := UpdateFields{Reason: req.Reason, Notes: req.Notes}

	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *req.Status)
		}
		if !CanTransition(appt.Status, *req.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, *req.Status)
		}
		prev := appt.Status
		upd.Status = req.Status
		upd.PrevStatus = &prev
	}

	reschedule := req.Date != nil || req.Time != nil || req.DoctorID != nil
	if !reschedule {
		updated, err := s.repo.UpdateAppointment(ctx, id, upd)
		if err != nil {
			return nil, err
		}
		return updated, nil
	}

	doctor, startsAt, err := s.rescheduleTarget(ctx, appt, req)
	if err != nil {
		return nil, err
	}
	upd.DoctorID = &doctor.ID
	upd.StartsAt = &startsAt

	var updated *Appointment
	err = s.locker.WithSlotLock(ctx, doctor.ID, startsAt, func(lockCtx context.Context) error {
		day := time.Date(startsAt.Year(), startsAt.Month(), startsAt.Day(), 0, 0, 0, 0, s.loc)
		slots, _, err := s.slotsFor(lockCtx, doctor, day, appt.ID)
		if err != nil {
			return err
		}
		if !containsTime(slots, startsAt) {
			return ErrSlotUnavailable
		}

		updated, err = s.repo.UpdateAppointment(lockCtx, id, upd)
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return ErrSlotUnavailable
			}
			return err
		}

		s.logEvent(lockCtx, id, EventAppointmentRescheduled, map[string]any{
			"doctor_id": doctor.ID.String(),
			"starts_at": startsAt,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return updated, nil
}

func (s *Service) rescheduleTarget(ctx context.Context, appt *Appointment, req UpdateRequest) (*Doctor, time.Time, error) {
	doctorID := appt.DoctorID
	if req.DoctorID != nil {
		doctorID = *req.DoctorID
	}
	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, time.Time{}, err
	}

	date := appt.StartsAt.In(s.loc).Format(dateLayout)
	clock := appt.StartsAt.In(s.loc).Format(timeLayout)
	if req.Date != nil {
		date = strings.TrimSpace(*req.Date)
	}
	if req.Time != nil {
		clock = strings.TrimSpace(*req.Time)
	}

	startsAt, err := time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+clock, s.loc)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: invalid date or time format", ErrValidation)
	}
	if !startsAt.After(s.now()) {
		return nil, time.Time{}, fmt.Errorf("%w: cannot move an appointment into the past", ErrValidation)
	}
	return doctor, startsAt, nil
}

// SetNotes attaches notes to an appointment. Staff may annotate any
// appointment; a medecin only their own. Notes never touch the status.
func (s *Service) SetNotes(ctx context.Context, id uuid.UUID, notes string, actor Identity) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Role.Staff():
	case actor.Role == RoleMedecin:
		doctor, err := s.repo.GetDoctorByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: no doctor profile for user", ErrForbidden)
		}
		if doctor.ID != appt.DoctorID {
			return nil, fmt.Errorf("%w: not this doctor's appointment", ErrForbidden)
		}
	default:
		return nil, fmt.Errorf("%w: role %q may not set notes", ErrForbidden, actor.Role)
	}

	return s.repo.UpdateAppointment(ctx, id, UpdateFields{Notes: &notes})
}

// ListAll returns every appointment, optionally filtered by status.
func (s *Service) ListAll(ctx context.Context, status *Status) ([]Detail, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *status)
	}
	return s.repo.ListAppointments(ctx, status)
}

// ListForDoctor returns a doctor's appointments within [from, to); zero
// boundaries are unbounded.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Detail, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListAppointmentsByDoctor(ctx, doctorID, from, to)
}

// ListForDoctorUser resolves the medecin dashboard's own listing.
func (s *Service) ListForDoctorUser(ctx context.Context, userID uuid.UUID) ([]Detail, error) {
	doctor, err := s.repo.GetDoctorByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAppointmentsByDoctor(ctx, doctor.ID, time.Time{}, time.Time{})
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	return s.repo.ListAppointmentsByPatient(ctx, patientID)
}

// UpcomingForPhone is the public "my appointments" lookup by phone number.
func (s *Service) UpcomingForPhone(ctx context.Context, phone string) ([]Detail, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrValidation)
	}
	return s.repo.ListAppointmentsByPhone(ctx, phone, s.now())
}

// Users lists all accounts for the admin dashboard.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

func (s *Service) today() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

func containsTime(slots []time.Time, t time.Time) bool {
	for _, s := range slots {
		if s.Equal(t) {
			return true
		}
	}
	return false
}

func eventForStatus(target Status) string {
	switch target {
	case StatusConfirmed:
		return EventAppointmentConfirmed
	case StatusCompleted:
		return EventAppointmentCompleted
	case StatusCancelled:
		return EventAppointmentCancelled
	}
	return EventAppointmentRescheduled
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}
