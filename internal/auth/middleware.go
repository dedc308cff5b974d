package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-booking/internal/appointment"
)

const CookieName = "session_token"

type contextKey string

const userKey contextKey = "current_user"

// UserSource loads the account behind a session token.
type UserSource interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*appointment.User, error)
}

// Sessions validates the session cookie and resolves the current user.
type Sessions struct {
	secret string
	ttl    time.Duration
	users  UserSource
}

func NewSessions(secret string, ttl time.Duration, users UserSource) *Sessions {
	return &Sessions{secret: secret, ttl: ttl, users: users}
}

func (s *Sessions) IssueToken(userID uuid.UUID, role appointment.Role) (string, error) {
	return NewSessionToken(s.secret, userID, role, s.ttl)
}

func (s *Sessions) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Optional resolves a session cookie when present and stores the current
// user in the request context; anonymous requests continue untouched.
// Public booking runs behind this, dashboards behind Require.
func (s *Sessions) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		ident, err := ParseSessionToken(s.secret, cookie.Value)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.users.GetUserByID(r.Context(), ident.UserID)
		if err != nil || !user.IsActive {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require rejects requests without a valid session for one of the given roles.
func (s *Sessions) Require(roles ...appointment.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok {
				denyJSON(w, http.StatusUnauthorized, "authentication_required")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			denyJSON(w, http.StatusForbidden, "forbidden")
		})
	}
}

func denyJSON(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `"}`))
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(ctx context.Context) (*appointment.User, bool) {
	user, ok := ctx.Value(userKey).(*appointment.User)
	return user, ok
}

// CurrentIdentity returns the opaque identity for the service layer; the
// zero Identity means anonymous.
func CurrentIdentity(ctx context.Context) appointment.Identity {
	user, ok := CurrentUser(ctx)
	if !ok {
		return appointment.Identity{}
	}
	return appointment.Identity{UserID: user.ID, Role: user.Role}
}
