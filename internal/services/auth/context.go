package auth

import (
	"context"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

type identityContextKey string

const identityKey identityContextKey = "auth_identity"

type Identity struct {
	UserID        string
	Email         string
	EmailVerified bool
	Admin         bool
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// RequesterFromContext returns an anonymous requester when no identity is
// attached.
func RequesterFromContext(ctx context.Context, ip string) model.Requester {
	identity, _ := IdentityFromContext(ctx)
	return model.Requester{
		UserID:        identity.UserID,
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		AdminClaim:    identity.Admin,
		IP:            ip,
	}
}
