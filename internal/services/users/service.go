package users

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

const (
	defaultSuspension = 24 * time.Hour
	maxSuspension     = 365 * 24 * time.Hour
	maxReasonLength   = 500
)

type BlockStore interface {
	Upsert(ctx context.Context, rec model.BlockRecord) error
	Delete(ctx context.Context, userID string) (bool, error)
}

type PremiumStore interface {
	SetPremium(ctx context.Context, userID string, premium bool) error
}

type AdminGate interface {
	RequireAdmin(ctx context.Context, r model.Requester) error
}

type Notifier interface {
	Notify(ctx context.Context, title, message string, severity enums.AlertSeverity)
}

type ManageInput struct {
	UserID        string
	Action        enums.ManageAction
	Reason        string
	DurationHours *int
}

type ManageResult struct {
	Action         enums.ManageAction
	UserID         string
	SuspendedUntil *time.Time
	Removed        bool
}

type Service struct {
	blocks   BlockStore
	premium  PremiumStore
	gate     AdminGate
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(blocks BlockStore, premium PremiumStore, gate AdminGate, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		blocks:   blocks,
		premium:  premium,
		gate:     gate,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// Manage blocks, suspends or unblocks a user. A block with a duration is
// a suspension; a suspend without one lasts a day.
func (s *Service) Manage(ctx context.Context, admin model.Requester, in ManageInput) (ManageResult, error) {
	if err := s.requireAdmin(ctx, admin); err != nil {
		return ManageResult{}, err
	}

	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return ManageResult{}, apperr.New(apperr.InvalidArgument, "user_id is required")
	}
	if !in.Action.Valid() {
		return ManageResult{}, apperr.New(apperr.InvalidArgument, "action must be one of block, suspend, unblock")
	}
	if s.blocks == nil {
		return ManageResult{}, apperr.New(apperr.FailedPrecondition, "User blocking is not configured")
	}
	reason := strings.TrimSpace(in.Reason)
	if len([]rune(reason)) > maxReasonLength {
		return ManageResult{}, apperr.Newf(apperr.InvalidArgument, "reason must be at most %d characters", maxReasonLength)
	}

	res := ManageResult{Action: in.Action, UserID: userID}

	switch in.Action {
	case enums.ManageActionUnblock:
		removed, err := s.blocks.Delete(ctx, userID)
		if err != nil {
			return ManageResult{}, apperr.Wrap(apperr.Internal, "Failed to unblock user", err)
		}
		res.Removed = removed
	default:
		rec := model.BlockRecord{UserID: userID, Reason: reason, BlockedBy: admin.UserID}

		duration, err := suspensionFor(in)
		if err != nil {
			return ManageResult{}, err
		}
		if duration > 0 {
			until := s.now().UTC().Add(duration)
			rec.SuspendedUntil = &until
			res.SuspendedUntil = &until
		} else {
			rec.PermanentBan = true
		}

		if err := s.blocks.Upsert(ctx, rec); err != nil {
			return ManageResult{}, apperr.Wrap(apperr.Internal, "Failed to block user", err)
		}
	}

	s.logger.Info("user access changed",
		zap.String("admin_id", admin.UserID),
		zap.String("user_id", userID),
		zap.String("action", string(in.Action)),
	)
	if s.notifier != nil {
		s.notifier.Notify(ctx, "User access changed",
			fmt.Sprintf("Admin %s applied %s to user %s. Reason: %s", admin.UserID, in.Action, userID, orDash(reason)),
			enums.AlertSeverityInfo)
	}
	return res, nil
}

func (s *Service) SetPremium(ctx context.Context, admin model.Requester, userID string, premium bool) error {
	if err := s.requireAdmin(ctx, admin); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperr.New(apperr.InvalidArgument, "user_id is required")
	}
	if s.premium == nil {
		return apperr.New(apperr.FailedPrecondition, "Quota storage is not configured")
	}
	if err := s.premium.SetPremium(ctx, userID, premium); err != nil {
		return apperr.Wrap(apperr.Internal, "Failed to update premium flag", err)
	}
	s.logger.Info("premium flag changed",
		zap.String("admin_id", admin.UserID),
		zap.String("user_id", userID),
		zap.Bool("premium", premium),
	)
	return nil
}

func (s *Service) requireAdmin(ctx context.Context, admin model.Requester) error {
	if s.gate == nil {
		return apperr.New(apperr.PermissionDenied, "Admin access required")
	}
	return s.gate.RequireAdmin(ctx, admin)
}

func suspensionFor(in ManageInput) (time.Duration, error) {
	if in.DurationHours == nil {
		if in.Action == enums.ManageActionSuspend {
			return defaultSuspension, nil
		}
		return 0, nil
	}
	hours := *in.DurationHours
	if hours <= 0 {
		return 0, apperr.New(apperr.InvalidArgument, "duration must be a positive number of hours")
	}
	d := time.Duration(hours) * time.Hour
	if d > maxSuspension {
		return 0, apperr.New(apperr.InvalidArgument, "duration must be at most one year")
	}
	return d, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
