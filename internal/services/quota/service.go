package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/enums"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/rules"
	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
)

type QuotaStore interface {
	Get(ctx context.Context, userID string) (model.UserQuota, bool, error)
	Update(ctx context.Context, userID string, fn func(q *model.UserQuota, exists bool) error) (model.UserQuota, error)
}

type IPStore interface {
	Update(ctx context.Context, ip string, fn func(w *model.IPWindow, exists bool) error) error
}

type BurstLimiter interface {
	AllowGeneration(ctx context.Context, subject string) (int64, bool, error)
	RetryAfter(ctx context.Context, subject string) (int64, error)
}

type Notifier interface {
	Notify(ctx context.Context, title, message string, severity enums.AlertSeverity)
}

type Config struct {
	DailyLimit        int
	PremiumDailyLimit int
	IPLimit           int
	IPWindow          time.Duration
	Location          *time.Location
}

// Service enforces the daily per-user quota, the hourly per-IP window and
// the short burst windows. Storage errors deny the request.
type Service struct {
	quotas   QuotaStore
	ips      IPStore
	burst    BurstLimiter
	notifier Notifier
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(quotas QuotaStore, ips IPStore, burst BurstLimiter, notifier Notifier, cfg Config, logger *zap.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		quotas:   quotas,
		ips:      ips,
		burst:    burst,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// LoadLocation falls back to UTC for an empty or unknown zone name.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ConsumeDaily takes one slot from the requester's daily allowance. The
// read, decision and write happen in a single transaction on the quota row.
func (s *Service) ConsumeDaily(ctx context.Context, r model.Requester, isAdmin bool) error {
	if isAdmin {
		return nil
	}
	if !r.Authenticated() {
		return apperr.New(apperr.Unauthenticated, "Authentication required")
	}
	if s.quotas == nil {
		return apperr.New(apperr.Internal, "Quota storage is unavailable")
	}

	today := rules.DayKey(s.now(), s.cfg.Location)
	var limit int
	_, err := s.quotas.Update(ctx, r.UserID, func(q *model.UserQuota, exists bool) error {
		limit = rules.DailyLimit(q.IsPremium, s.cfg.DailyLimit, s.cfg.PremiumDailyLimit)
		if err := rules.ConsumeDaily(q, exists, today, limit); err != nil {
			return err
		}
		if r.Email != "" {
			q.Email = r.Email
		}
		q.LastIP = r.IP
		return nil
	})
	if err != nil {
		if errors.Is(err, rules.ErrDailyLimitReached) {
			return apperr.Newf(apperr.ResourceExhausted, "Daily limit of %d images reached. Try again tomorrow.", limit)
		}
		s.logger.Error("consume daily quota", zap.String("user_id", r.UserID), zap.Error(err))
		return apperr.Wrap(apperr.Internal, "Failed to check quota", err)
	}
	return nil
}

// ConsumeIP records one request in the sliding per-IP window.
func (s *Service) ConsumeIP(ctx context.Context, r model.Requester) error {
	if r.IP == "" || s.ips == nil || s.cfg.IPLimit <= 0 {
		return nil
	}

	err := s.ips.Update(ctx, r.IP, func(w *model.IPWindow, _ bool) error {
		return rules.SlideWindow(w, s.now().UTC(), s.cfg.IPWindow, s.cfg.IPLimit)
	})
	if err != nil {
		if errors.Is(err, rules.ErrIPLimitReached) {
			if s.notifier != nil {
				s.notifier.Notify(ctx, "IP rate limit exceeded",
					fmt.Sprintf("IP %s exceeded %d requests per %s (user %s)", r.IP, s.cfg.IPLimit, s.cfg.IPWindow, r.UserID),
					enums.AlertSeverityWarning)
			}
			return apperr.New(apperr.ResourceExhausted, "Too many requests from this IP address. Please try again later.")
		}
		s.logger.Error("consume ip window", zap.String("ip", r.IP), zap.Error(err))
		return apperr.Wrap(apperr.Internal, "Failed to check rate limit", err)
	}
	return nil
}

// ConsumeBurst applies the short per-minute and per-10-second windows.
func (s *Service) ConsumeBurst(ctx context.Context, r model.Requester) error {
	if s.burst == nil {
		return nil
	}
	subject := burstSubject(r)
	retryAfter, allowed, err := s.burst.AllowGeneration(ctx, subject)
	if err != nil {
		s.logger.Error("burst limiter", zap.String("subject", subject), zap.Error(err))
		return apperr.Wrap(apperr.Internal, "Failed to check rate limit", err)
	}
	if !allowed {
		return apperr.Newf(apperr.ResourceExhausted, "Too many requests. Retry in %d seconds.", retryAfter)
	}
	return nil
}

func burstSubject(r model.Requester) string {
	if r.UserID != "" {
		return r.UserID
	}
	return "ip:" + r.IP
}

// Snapshot reports the requester's allowance without consuming it. A
// burst lookup failure only leaves RetryAfterSeconds at zero.
func (s *Service) Snapshot(ctx context.Context, r model.Requester, isAdmin bool) (model.QuotaSnapshot, error) {
	if !r.Authenticated() {
		return model.QuotaSnapshot{}, apperr.New(apperr.Unauthenticated, "Authentication required")
	}
	now := s.now()
	resetAt := rules.NextResetAt(now, s.cfg.Location)
	retryAfter := s.burstWait(ctx, r)
	if isAdmin {
		return model.QuotaSnapshot{Unlimited: true, ResetAt: resetAt, RetryAfterSeconds: retryAfter}, nil
	}
	if s.quotas == nil {
		return model.QuotaSnapshot{}, apperr.New(apperr.Internal, "Quota storage is unavailable")
	}

	q, exists, err := s.quotas.Get(ctx, r.UserID)
	if err != nil {
		return model.QuotaSnapshot{}, apperr.Wrap(apperr.Internal, "Failed to read quota", err)
	}
	limit := rules.DailyLimit(q.IsPremium, s.cfg.DailyLimit, s.cfg.PremiumDailyLimit)
	snap := rules.SnapshotDaily(q, exists, rules.DayKey(now, s.cfg.Location), limit, resetAt)
	snap.RetryAfterSeconds = retryAfter
	return snap, nil
}

func (s *Service) burstWait(ctx context.Context, r model.Requester) int64 {
	if s.burst == nil {
		return 0
	}
	wait, err := s.burst.RetryAfter(ctx, burstSubject(r))
	if err != nil {
		s.logger.Warn("read burst window", zap.String("user_id", r.UserID), zap.Error(err))
		return 0
	}
	return wait
}
