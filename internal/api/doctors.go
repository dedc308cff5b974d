package api

import (
	"net/http"
)

func listDoctorsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.Doctors(r.Context(), r.URL.Query().Get("specialty"))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		out := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			out = append(out, toDoctorResponse(d))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func getDoctorHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		doctor, err := svc.Doctor(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDoctorResponse(*doctor))
	}
}

func getSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		avail, err := svc.AvailableSlots(r.Context(), id, r.URL.Query().Get("date"))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		slots := avail.Slots
		if slots == nil {
			slots = []string{}
		}

		writeJSON(w, http.StatusOK, SlotsResponse{
			Date:       avail.Date,
			DoctorName: avail.DoctorName,
			Slots:      slots,
			Message:    avail.Message,
		})
	}
}
