package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicore/clinic-booking/internal/scheduling"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock
// implements it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

// Helpers

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.PasswordHash,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Name,
		&d.Specialty,
		&d.Description,
		&d.ConsultationMinutes,
		&d.IsAvailable,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.PatientName,
		&a.PatientPhone,
		&a.StartsAt,
		&a.Status,
		&a.Reason,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	err := row.Scan(
		&d.ID,
		&d.DoctorID,
		&d.PatientID,
		&d.PatientName,
		&d.PatientPhone,
		&d.StartsAt,
		&d.Status,
		&d.Reason,
		&d.Notes,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.DoctorName,
		&d.DoctorSpecialty,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const userColumns = "id, name, email, phone, password_hash, role, is_active, created_at"

const doctorColumns = `
	d.id, d.user_id, u.name, d.specialty, d.description,
	d.consultation_minutes, d.is_available, d.created_at, d.updated_at`

const appointmentColumns = `
	id, doctor_id, patient_id, patient_name, patient_phone,
	starts_at, status, reason, notes, created_at, updated_at`

const detailColumns = `
	a.id, a.doctor_id, a.patient_id, a.patient_name, a.patient_phone,
	a.starts_at, a.status, a.reason, a.notes, a.created_at, a.updated_at,
	u.name, d.specialty`

// Doctors

func (r *PgRepository) ListDoctors(ctx context.Context, specialty string) ([]Doctor, error) {
	query := `
		SELECT ` + doctorColumns + `
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		WHERE d.is_available`
	args := []any{}
	if specialty != "" {
		query += ` AND d.specialty ILIKE '%' || $1 || '%'`
		args = append(args, specialty)
	}
	query += ` ORDER BY u.name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		WHERE d.id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		WHERE d.user_id = $1
	`, userID)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorSchedule(ctx context.Context, doctorID uuid.UUID) ([]scheduling.Rule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT weekday, start_time, end_time
		FROM doctor_schedules
		WHERE doctor_id = $1 AND is_active
		ORDER BY weekday, start_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []scheduling.Rule
	for rows.Next() {
		var weekday int
		var startStr, endStr string
		if err := rows.Scan(&weekday, &startStr, &endStr); err != nil {
			return nil, err
		}
		w, err := scheduling.ParseWindow(startStr + "-" + endStr)
		if err != nil {
			return nil, fmt.Errorf("doctor %s schedule row: %w", doctorID, err)
		}
		rules = append(rules, scheduling.Rule{Weekday: time.Weekday(weekday), Window: w})
	}
	return rules, rows.Err()
}

// Users

func (r *PgRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *PgRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

func (r *PgRepository) FindUserByPhone(ctx context.Context, phone string) (*User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE phone = $1
		ORDER BY created_at
		LIMIT 1
	`, phone)
	return scanUser(row)
}

func (r *PgRepository) CreateUser(ctx context.Context, u User) (*User, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (id, name, email, phone, password_hash, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING `+userColumns+`
	`, u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, u.IsActive)
	return scanUser(row)
}

func (r *PgRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	return result, rows.Err()
}

// Appointments

func (r *PgRepository) ListActiveAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND starts_at >= $2 AND starts_at < $3
		  AND status IN ('pending', 'confirmed')
		ORDER BY starts_at
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments
			(id, doctor_id, patient_id, patient_name, patient_phone, starts_at, status, reason, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.ID, a.DoctorID, a.PatientID, a.PatientName, a.PatientPhone, a.StartsAt, a.Status, a.Reason, a.Notes)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

// UpdateAppointment applies a staff patch as one UPDATE statement so the
// mutation is all-or-nothing. When a status change is included the previous
// status is part of the WHERE clause (compare-and-swap).
func (r *PgRepository) UpdateAppointment(ctx context.Context, id uuid.UUID, upd UpdateFields) (*Appointment, error) {
	set := []string{"updated_at = now()"}
	args := []any{id}

	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.DoctorID != nil {
		add("doctor_id", *upd.DoctorID)
	}
	if upd.StartsAt != nil {
		add("starts_at", *upd.StartsAt)
	}
	if upd.Reason != nil {
		add("reason", *upd.Reason)
	}
	if upd.Notes != nil {
		add("notes", *upd.Notes)
	}

	query := `
		UPDATE appointments
		SET ` + strings.Join(set, ", ") + `
		WHERE id = $1`
	if upd.PrevStatus != nil {
		args = append(args, *upd.PrevStatus)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += `
		RETURNING ` + appointmentColumns

	updated, err := scanAppointment(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID, ifStatus Status) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM appointments
		WHERE id = $1 AND status = $2
	`, id, ifStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

const detailFrom = `
	FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users u ON u.id = d.user_id`

func (r *PgRepository) ListAppointments(ctx context.Context, status *Status) ([]Detail, error) {
	query := `SELECT ` + detailColumns + detailFrom
	args := []any{}
	if status != nil {
		query += ` WHERE a.status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY a.starts_at`

	return r.queryDetails(ctx, query, args...)
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Detail, error) {
	query := `SELECT ` + detailColumns + detailFrom + `
		WHERE a.doctor_id = $1`
	args := []any{doctorID}
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND a.starts_at >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(" AND a.starts_at < $%d", len(args))
	}
	query += ` ORDER BY a.starts_at`

	return r.queryDetails(ctx, query, args...)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	query := `SELECT ` + detailColumns + detailFrom + `
		WHERE a.patient_id = $1
		ORDER BY a.starts_at`
	return r.queryDetails(ctx, query, patientID)
}

func (r *PgRepository) ListAppointmentsByPhone(ctx context.Context, phone string, from time.Time) ([]Detail, error) {
	query := `SELECT ` + detailColumns + detailFrom + `
		WHERE a.patient_phone = $1 AND a.starts_at >= $2
		ORDER BY a.starts_at`
	return r.queryDetails(ctx, query, phone, from)
}

func (r *PgRepository) queryDetails(ctx context.Context, query string, args ...any) ([]Detail, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

// Events

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointment_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert appointment event: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
