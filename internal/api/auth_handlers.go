package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicore/clinic-booking/internal/appointment"
	"github.com/clinicore/clinic-booking/internal/auth"
)

func loginHandler(users UserDirectory, sessions *auth.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "email and password are required")
			return
		}

		user, err := users.GetUserByEmail(r.Context(), req.Email)
		if err != nil {
			if errors.Is(err, appointment.ErrUserNotFound) {
				writeError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
				return
			}
			handleServiceError(w, err)
			return
		}

		if user.PasswordHash == nil || !user.IsActive || !auth.CheckPassword(req.Password, *user.PasswordHash) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
			return
		}

		token, err := sessions.IssueToken(user.ID, user.Role)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not create session")
			return
		}
		sessions.SetCookie(w, token)

		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

func logoutHandler(sessions *auth.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.ClearCookie(w)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func meHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.CurrentUser(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication_required", "no valid session")
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}
