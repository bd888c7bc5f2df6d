package auth

import (
	"errors"
	"time"
)

var ErrUnauthorized = errors.New("unauthorized")

type AccessClaims struct {
	UserID        string
	Email         string
	EmailVerified bool
	Admin         bool
	ExpiresAt     time.Time
}
