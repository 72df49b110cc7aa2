package util

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// SessionTTL is how long a session token stays valid.
const SessionTTL = 24 * time.Hour

var (
	jwtSecretByte = []byte(os.Getenv("JWTSECRET"))
	jwtMutex      sync.RWMutex

	ErrMissingSecret = errors.New("jwt secret is not configured")
	ErrInvalidToken  = errors.New("invalid session token")
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	ID     uint   `json:"id"`
	Role   string `json:"role"`
	RoleID uint32 `json:"role_id"`
	jwt.RegisteredClaims
}

// SetJWTSecret replaces the signing secret. Safe for concurrent use.
func SetJWTSecret(secret string) {
	jwtMutex.Lock()
	defer jwtMutex.Unlock()
	jwtSecretByte = []byte(secret)
}

// GetJWTSecretByte returns a copy of the current signing secret.
func GetJWTSecretByte() []byte {
	jwtMutex.RLock()
	defer jwtMutex.RUnlock()
	return append([]byte(nil), jwtSecretByte...)
}

// GenerateSessionToken signs an HS256 token for the subject and returns it
// with its expiry.
func GenerateSessionToken(subjectID uint, roleID uint32) (string, time.Time, error) {
	secret := GetJWTSecretByte()
	if len(secret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}

	now := time.Now()
	expires := now.Add(SessionTTL)
	claims := SessionClaims{
		ID:     subjectID,
		Role:   model.RoleName(roleID),
		RoleID: roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// ParseSessionToken verifies the signature and expiry of a session token.
func ParseSessionToken(tokenString string) (*SessionClaims, error) {
	secret := GetJWTSecretByte()
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
