package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-booking/internal/appointment"
	"github.com/clinicore/clinic-booking/internal/auth"
)

func listUsersHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.Users(r.Context())
		if err != nil {
			handleServiceError(w, err)
			return
		}

		out := make([]UserResponse, 0, len(users))
		for i := range users {
			out = append(out, toUserResponse(&users[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status *appointment.Status
		if raw := r.URL.Query().Get("status"); raw != "" {
			st := appointment.Status(raw)
			status = &st
		}

		details, err := svc.ListAll(r.Context(), status)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponses(details))
	}
}

func updateAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		upd := appointment.UpdateRequest{
			Date:   req.Date,
			Time:   req.Time,
			Reason: req.Reason,
			Notes:  req.Notes,
		}
		if req.Status != nil {
			st := appointment.Status(*req.Status)
			upd.Status = &st
		}
		if req.DoctorID != nil {
			doctorID, err := uuid.Parse(*req.DoctorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			upd.DoctorID = &doctorID
		}

		appt, err := svc.Update(r.Context(), id, upd, auth.CurrentIdentity(r.Context()))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func createNotificationHandler(svc NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateNotificationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a valid UUID")
			return
		}
		if req.Subject == "" || req.Message == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "subject and message are required")
			return
		}

		created, err := svc.Create(r.Context(), userID, req.Subject, req.Message, req.Channel)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toNotificationResponse(created))
	}
}

// suggestionsHandler reserves the ML suggestion endpoint for the admin
// dashboard. No model runs behind it yet: the requested specialty is
// echoed back with a flat score.
func suggestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SuggestionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		suggestions := []SpecialtySuggestion{}
		if req.Specialty != nil && *req.Specialty != "" {
			suggestions = append(suggestions, SpecialtySuggestion{Specialty: *req.Specialty, Score: 0.5})
		}

		writeJSON(w, http.StatusOK, SuggestionResponse{
			Success:     true,
			Suggestions: suggestions,
			Message:     "Placeholder ML: suggestions basées sur les entrées disponibles.",
		})
	}
}

func doctorAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := auth.CurrentIdentity(r.Context())
		details, err := svc.ListForDoctorUser(r.Context(), ident.UserID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponses(details))
	}
}

func doctorNotesHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req NotesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.SetNotes(r.Context(), id, req.Notes, auth.CurrentIdentity(r.Context()))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}
