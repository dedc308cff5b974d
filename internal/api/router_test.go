package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-booking/internal/appointment"
	"github.com/clinicore/clinic-booking/internal/auth"
	"github.com/clinicore/clinic-booking/internal/metrics"
	"github.com/clinicore/clinic-booking/internal/notify"
)

// stubService answers from canned data; individual tests override the
// function fields they exercise.
type stubService struct {
	doctors    []appointment.Doctor
	bookFn     func(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error)
	slotsFn    func(ctx context.Context, doctorID uuid.UUID, date string) (*appointment.Availability, error)
	cancelFn   func(ctx context.Context, id uuid.UUID, actor appointment.Identity) error
	transFn    func(ctx context.Context, id uuid.UUID, target appointment.Status, actor appointment.Identity) (*appointment.Appointment, error)
	updateFn   func(ctx context.Context, id uuid.UUID, req appointment.UpdateRequest, actor appointment.Identity) (*appointment.Appointment, error)
	upcomingFn func(ctx context.Context, phone string) ([]appointment.Detail, error)
}

func (s *stubService) Doctors(_ context.Context, _ string) ([]appointment.Doctor, error) {
	return s.doctors, nil
}

func (s *stubService) Doctor(_ context.Context, id uuid.UUID) (*appointment.Doctor, error) {
	for _, d := range s.doctors {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, appointment.ErrDoctorNotFound
}

func (s *stubService) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) (*appointment.Availability, error) {
	if s.slotsFn != nil {
		return s.slotsFn(ctx, doctorID, date)
	}
	return &appointment.Availability{Date: date, DoctorName: "Dr Durand", Slots: []string{"09:00"}}, nil
}

func (s *stubService) Book(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error) {
	if s.bookFn != nil {
		return s.bookFn(ctx, req)
	}
	return &appointment.Appointment{
		ID:          uuid.New(),
		DoctorID:    req.DoctorID,
		PatientName: req.PatientName,
		StartsAt:    time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC),
		Status:      appointment.StatusPending,
	}, nil
}

func (s *stubService) Transition(ctx context.Context, id uuid.UUID, target appointment.Status, actor appointment.Identity) (*appointment.Appointment, error) {
	if s.transFn != nil {
		return s.transFn(ctx, id, target, actor)
	}
	return &appointment.Appointment{ID: id, Status: target}, nil
}

func (s *stubService) CancelOwnPending(ctx context.Context, id uuid.UUID, actor appointment.Identity) error {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, id, actor)
	}
	return nil
}

func (s *stubService) Update(ctx context.Context, id uuid.UUID, req appointment.UpdateRequest, actor appointment.Identity) (*appointment.Appointment, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, req, actor)
	}
	return &appointment.Appointment{ID: id, Status: appointment.StatusConfirmed}, nil
}

func (s *stubService) SetNotes(_ context.Context, id uuid.UUID, notes string, _ appointment.Identity) (*appointment.Appointment, error) {
	return &appointment.Appointment{ID: id, Notes: &notes}, nil
}

func (s *stubService) ListAll(_ context.Context, _ *appointment.Status) ([]appointment.Detail, error) {
	return nil, nil
}

func (s *stubService) ListForDoctorUser(_ context.Context, _ uuid.UUID) ([]appointment.Detail, error) {
	return nil, nil
}

func (s *stubService) ListForPatient(_ context.Context, _ uuid.UUID) ([]appointment.Detail, error) {
	return nil, nil
}

func (s *stubService) UpcomingForPhone(ctx context.Context, phone string) ([]appointment.Detail, error) {
	if s.upcomingFn != nil {
		return s.upcomingFn(ctx, phone)
	}
	return nil, nil
}

func (s *stubService) Users(_ context.Context) ([]appointment.User, error) {
	return nil, nil
}

// stubDirectory backs both login lookups and session resolution.
type stubDirectory struct {
	users map[uuid.UUID]appointment.User
}

func (s *stubDirectory) GetUserByEmail(_ context.Context, email string) (*appointment.User, error) {
	for _, u := range s.users {
		if u.Email != nil && *u.Email == email {
			return &u, nil
		}
	}
	return nil, appointment.ErrUserNotFound
}

func (s *stubDirectory) GetUserByID(_ context.Context, id uuid.UUID) (*appointment.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, appointment.ErrUserNotFound
	}
	return &u, nil
}

type stubNotifications struct {
	created []notify.Notification
}

func (s *stubNotifications) Create(_ context.Context, userID uuid.UUID, subject, message, channel string) (*notify.Notification, error) {
	n := notify.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Subject: subject,
		Message: message,
		Channel: channel,
		Status:  notify.StatusPending,
	}
	s.created = append(s.created, n)
	return &n, nil
}

type testEnv struct {
	router   http.Handler
	svc      *stubService
	dir      *stubDirectory
	sessions *auth.Sessions
}

func newTestEnv(t *testing.T, users ...appointment.User) *testEnv {
	t.Helper()

	dir := &stubDirectory{users: make(map[uuid.UUID]appointment.User)}
	for _, u := range users {
		dir.users[u.ID] = u
	}

	svc := &stubService{}
	sessions := auth.NewSessions("test-secret", time.Hour, dir)

	router := NewRouter(RouterConfig{
		Service:       svc,
		Users:         dir,
		Notifications: &stubNotifications{},
		Sessions:      sessions,
		Metrics:       metrics.NewHTTPMetrics(),
		Env:           "test",
		Version:       "test",
	})

	return &testEnv{router: router, svc: svc, dir: dir, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, as *appointment.User) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, err := e.sessions.IssueToken(as.ID, as.Role)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func strptr(s string) *string { return &s }

func activeUser(role appointment.Role, email string) appointment.User {
	return appointment.User{
		ID:       uuid.New(),
		Name:     "Test " + string(role),
		Email:    strptr(email),
		Role:     role,
		IsActive: true,
	}
}

func TestListDoctors(t *testing.T) {
	env := newTestEnv(t)
	env.svc.doctors = []appointment.Doctor{
		{ID: uuid.New(), Name: "Dr Durand", Specialty: "Cardiologie", ConsultationMinutes: 30},
	}

	rec := env.do(t, http.MethodGet, "/api/doctors", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[[]DoctorResponse](t, rec)
	require.Len(t, out, 1)
	assert.Equal(t, "Dr Durand", out[0].Name)
	assert.Equal(t, 30, out[0].ConsultationMinutes)
}

func TestGetDoctorNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/doctors/"+uuid.NewString(), nil, nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	out := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "doctor_not_found", out.Error)
}

func TestGetSlots(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/doctors/"+uuid.NewString()+"/slots?date=2026-09-07", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[SlotsResponse](t, rec)
	assert.Equal(t, "2026-09-07", out.Date)
	assert.Equal(t, []string{"09:00"}, out.Slots)
}

func TestGetSlotsEmptyListIsNotNull(t *testing.T) {
	env := newTestEnv(t)
	env.svc.slotsFn = func(_ context.Context, _ uuid.UUID, date string) (*appointment.Availability, error) {
		return &appointment.Availability{Date: date, DoctorName: "Dr Durand", Message: "Aucun créneau disponible pour cette date"}, nil
	}

	rec := env.do(t, http.MethodGet, "/api/doctors/"+uuid.NewString()+"/slots?date=2026-09-07", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slots":[]`)
}

func TestGetSlotsInvalidID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/doctors/not-a-uuid/slots?date=2026-09-07", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookAppointment(t *testing.T) {
	env := newTestEnv(t)
	doctorID := uuid.New()

	rec := env.do(t, http.MethodPost, "/api/appointments", BookAppointmentRequest{
		DoctorID:    doctorID.String(),
		PatientName: "Jean Dupont",
		Date:        "2026-09-07",
		Time:        "09:00",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	out := decodeBody[AppointmentResponse](t, rec)
	assert.Equal(t, doctorID, out.DoctorID)
	assert.Equal(t, "pending", out.Status)
}

func TestBookAppointmentBadBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewReader([]byte("{nope")))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookAppointmentInvalidDoctorID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/appointments", BookAppointmentRequest{
		DoctorID:    "not-a-uuid",
		PatientName: "Jean Dupont",
		Date:        "2026-09-07",
		Time:        "09:00",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookAppointmentConflict(t *testing.T) {
	env := newTestEnv(t)
	env.svc.bookFn = func(_ context.Context, _ appointment.BookingRequest) (*appointment.Appointment, error) {
		return nil, appointment.ErrSlotUnavailable
	}

	rec := env.do(t, http.MethodPost, "/api/appointments", BookAppointmentRequest{
		DoctorID:    uuid.NewString(),
		PatientName: "Jean Dupont",
		Date:        "2026-09-07",
		Time:        "09:00",
	}, nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	out := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "slot_unavailable", out.Error)
}

func TestBookAppointmentLockBusy(t *testing.T) {
	env := newTestEnv(t)
	env.svc.bookFn = func(_ context.Context, _ appointment.BookingRequest) (*appointment.Appointment, error) {
		return nil, appointment.ErrSlotBeingBooked
	}

	rec := env.do(t, http.MethodPost, "/api/appointments", BookAppointmentRequest{
		DoctorID:    uuid.NewString(),
		PatientName: "Jean Dupont",
		Date:        "2026-09-07",
		Time:        "09:00",
	}, nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	out := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "slot_being_booked", out.Error)
}

func TestUpcomingByPhoneValidation(t *testing.T) {
	env := newTestEnv(t)
	env.svc.upcomingFn = func(_ context.Context, phone string) ([]appointment.Detail, error) {
		if phone == "" {
			return nil, appointment.ErrValidation
		}
		return nil, nil
	}

	rec := env.do(t, http.MethodGet, "/api/appointments", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/appointments?phone=0612345678", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteAppointmentRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/appointments/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteAppointmentPatientPendingIsRemoved(t *testing.T) {
	patient := activeUser(appointment.RolePatient, "patient@example.com")
	env := newTestEnv(t, patient)

	rec := env.do(t, http.MethodDelete, "/api/appointments/"+uuid.NewString(), nil, &patient)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":true`)
}

func TestDeleteAppointmentPatientConfirmedIsCancelFlagged(t *testing.T) {
	patient := activeUser(appointment.RolePatient, "patient@example.com")
	env := newTestEnv(t, patient)

	env.svc.cancelFn = func(_ context.Context, _ uuid.UUID, _ appointment.Identity) error {
		return appointment.ErrInvalidTransition
	}
	env.svc.transFn = func(_ context.Context, id uuid.UUID, target appointment.Status, _ appointment.Identity) (*appointment.Appointment, error) {
		return &appointment.Appointment{ID: id, Status: target}, nil
	}

	rec := env.do(t, http.MethodDelete, "/api/appointments/"+uuid.NewString(), nil, &patient)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[AppointmentResponse](t, rec)
	assert.Equal(t, "cancelled", out.Status)
}

func TestAdminRoutesEnforceRoles(t *testing.T) {
	secretaire := activeUser(appointment.RoleSecretaire, "sec@example.com")
	env := newTestEnv(t, secretaire)

	// Anonymous.
	rec := env.do(t, http.MethodGet, "/api/admin/appointments", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Secretaire may list appointments but not users.
	rec = env.do(t, http.MethodGet, "/api/admin/appointments", nil, &secretaire)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/users", nil, &secretaire)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateAppointmentAsStaff(t *testing.T) {
	admin := activeUser(appointment.RoleAdmin, "admin@example.com")
	env := newTestEnv(t, admin)

	var gotStatus *appointment.Status
	env.svc.updateFn = func(_ context.Context, id uuid.UUID, req appointment.UpdateRequest, actor appointment.Identity) (*appointment.Appointment, error) {
		gotStatus = req.Status
		assert.Equal(t, admin.ID, actor.UserID)
		return &appointment.Appointment{ID: id, Status: *req.Status}, nil
	}

	rec := env.do(t, http.MethodPatch, "/api/admin/appointments/"+uuid.NewString(),
		UpdateAppointmentRequest{Status: strptr("confirmed")}, &admin)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotStatus)
	assert.Equal(t, appointment.StatusConfirmed, *gotStatus)
}

func TestCreateNotification(t *testing.T) {
	admin := activeUser(appointment.RoleAdmin, "admin@example.com")
	env := newTestEnv(t, admin)

	rec := env.do(t, http.MethodPost, "/api/admin/notifications", CreateNotificationRequest{
		UserID:  uuid.NewString(),
		Subject: "Rappel",
		Message: "Votre rendez-vous est demain",
	}, &admin)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSuggestionsEchoSpecialty(t *testing.T) {
	secretaire := activeUser(appointment.RoleSecretaire, "sec@example.com")
	env := newTestEnv(t, secretaire)

	rec := env.do(t, http.MethodPost, "/api/admin/ml/placeholder",
		SuggestionRequest{Specialty: strptr("Cardiologie")}, &secretaire)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[SuggestionResponse](t, rec)
	assert.True(t, out.Success)
	require.Len(t, out.Suggestions, 1)
	assert.Equal(t, "Cardiologie", out.Suggestions[0].Specialty)
	assert.Equal(t, 0.5, out.Suggestions[0].Score)
}

func TestSuggestionsWithoutSpecialty(t *testing.T) {
	admin := activeUser(appointment.RoleAdmin, "admin@example.com")
	env := newTestEnv(t, admin)

	rec := env.do(t, http.MethodPost, "/api/admin/ml/placeholder", SuggestionRequest{}, &admin)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[SuggestionResponse](t, rec)
	assert.True(t, out.Success)
	assert.Empty(t, out.Suggestions)
}

func TestSuggestionsRequireStaff(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/admin/ml/placeholder",
		SuggestionRequest{Specialty: strptr("Cardiologie")}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("admin123")
	require.NoError(t, err)

	admin := activeUser(appointment.RoleAdmin, "admin@clinique.fr")
	admin.PasswordHash = &hash
	env := newTestEnv(t, admin)

	rec := env.do(t, http.MethodPost, "/api/auth/login",
		LoginRequest{Email: "admin@clinique.fr", Password: "admin123"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "login must set the session cookie")
	assert.NotEmpty(t, sessionCookie.Value)
	assert.True(t, sessionCookie.HttpOnly)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("admin123")
	require.NoError(t, err)

	admin := activeUser(appointment.RoleAdmin, "admin@clinique.fr")
	admin.PasswordHash = &hash
	env := newTestEnv(t, admin)

	rec := env.do(t, http.MethodPost, "/api/auth/login",
		LoginRequest{Email: "admin@clinique.fr", Password: "wrong"}, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	out := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "invalid_credentials", out.Error)
}

func TestMeRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "bonjour"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[ChatResponse](t, rec)
	assert.NotEmpty(t, out.Reply)
	require.Len(t, out.History, 2)
	assert.Equal(t, "user", out.History[0].Role)
	assert.Equal(t, "assistant", out.History[1].Role)
}

func TestChatRequiresMessage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "   "}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
