package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-booking/internal/appointment"
	"github.com/clinicore/clinic-booking/internal/auth"
)

func bookAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		appt, err := svc.Book(r.Context(), appointment.BookingRequest{
			DoctorID:     doctorID,
			PatientName:  req.PatientName,
			PatientPhone: req.PatientPhone,
			Date:         req.Date,
			Time:         req.Time,
			Reason:       req.Reason,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func upcomingByPhoneHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details, err := svc.UpcomingForPhone(r.Context(), r.URL.Query().Get("phone"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponses(details))
	}
}

// deleteAppointmentHandler covers both cancellation paths: a patient
// removes their own pending appointment outright, while staff (and a
// patient whose appointment is already confirmed) cancel-flag it.
func deleteAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		ident := auth.CurrentIdentity(r.Context())
		if ident.Anonymous() {
			writeError(w, http.StatusUnauthorized, "authentication_required", "sign in to manage appointments")
			return
		}

		if ident.Role == appointment.RolePatient {
			err := svc.CancelOwnPending(r.Context(), id, ident)
			if err == nil {
				writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": true})
				return
			}
			if !errors.Is(err, appointment.ErrInvalidTransition) {
				handleServiceError(w, err)
				return
			}
			// Already confirmed: fall through to a cancel-flag.
		}

		appt, err := svc.Transition(r.Context(), id, appointment.StatusCancelled, ident)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func patientAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := auth.CurrentIdentity(r.Context())
		details, err := svc.ListForPatient(r.Context(), ident.UserID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponses(details))
	}
}
