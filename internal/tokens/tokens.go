// Package tokens issues and verifies the bearer tokens that carry
// an account id and role between requests.
package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/velmark/soundwave/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID   uint   `json:"id"`
	UserType string `json:"userType"`
	jwt.RegisteredClaims
}

type Manager struct {
	Secret []byte
	TTL    time.Duration
}

func NewManager(secret []byte, ttl time.Duration) *Manager {
	return &Manager{Secret: secret, TTL: ttl}
}

func (m *Manager) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		UserType: user.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.Secret)
}

func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return m.Secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
