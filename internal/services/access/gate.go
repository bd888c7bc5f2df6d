package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/enums"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
)

type BlockStore interface {
	Get(ctx context.Context, userID string) (*model.BlockRecord, error)
}

type AdminStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, title, message string, severity enums.AlertSeverity)
}

type Config struct {
	RequireVerifiedEmail bool
}

// Gate decides whether a requester may use the service at all.
type Gate struct {
	blocks   BlockStore
	admins   AdminStore
	notifier Notifier
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
}

func NewGate(blocks BlockStore, admins AdminStore, notifier Notifier, cfg Config, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		blocks:   blocks,
		admins:   admins,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

func (g *Gate) Check(ctx context.Context, r model.Requester) error {
	if !r.Authenticated() {
		return apperr.New(apperr.Unauthenticated, "Authentication required")
	}

	if g.blocks != nil {
		rec, err := g.blocks.Get(ctx, r.UserID)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "Failed to check account status", err)
		}
		if rec != nil && rec.ActiveAt(g.now()) {
			g.notify(ctx, "Blocked user attempted generation",
				fmt.Sprintf("User %s (%s) attempted to generate while blocked", r.UserID, r.Email),
				enums.AlertSeverityWarning)
			return apperr.New(apperr.PermissionDenied, blockMessage(*rec))
		}
	}

	if g.cfg.RequireVerifiedEmail && !r.EmailVerified {
		return apperr.New(apperr.PermissionDenied, "Email verification required")
	}
	return nil
}

// IsAdmin honours the token claim first and then the admins table. A
// lookup failure is treated as not admin.
func (g *Gate) IsAdmin(ctx context.Context, r model.Requester) bool {
	if !r.Authenticated() {
		return false
	}
	if r.AdminClaim {
		return true
	}
	if g.admins == nil {
		return false
	}
	ok, err := g.admins.IsAdmin(ctx, r.UserID)
	if err != nil {
		g.logger.Warn("admin lookup failed", zap.String("user_id", r.UserID), zap.Error(err))
		return false
	}
	return ok
}

func (g *Gate) RequireAdmin(ctx context.Context, r model.Requester) error {
	if !r.Authenticated() {
		return apperr.New(apperr.Unauthenticated, "Authentication required")
	}
	if !g.IsAdmin(ctx, r) {
		return apperr.New(apperr.PermissionDenied, "Admin access required")
	}
	return nil
}

func (g *Gate) notify(ctx context.Context, title, message string, severity enums.AlertSeverity) {
	if g.notifier == nil {
		return
	}
	g.notifier.Notify(ctx, title, message, severity)
}

func blockMessage(rec model.BlockRecord) string {
	if rec.PermanentBan {
		if reason := strings.TrimSpace(rec.Reason); reason != "" {
			return reason
		}
		return "Account suspended"
	}
	return "Account suspended until " + rec.SuspendedUntil.UTC().Format(time.RFC3339)
}
