package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-booking/internal/appointment"
)

var ErrInvalidToken = errors.New("invalid session token")

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewSessionToken signs a session token carrying the user id and role.
func NewSessionToken(secret string, userID uuid.UUID, role appointment.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken verifies the signature and expiry and returns the
// identity the token carries.
func ParseSessionToken(secret, raw string) (appointment.Identity, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return appointment.Identity{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return appointment.Identity{}, ErrInvalidToken
	}

	return appointment.Identity{
		UserID: userID,
		Role:   appointment.Role(claims.Role),
	}, nil
}
