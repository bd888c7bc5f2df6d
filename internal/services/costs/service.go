package costs

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/enums"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
)

type UsageCounter interface {
	CountSuccessfulSince(ctx context.Context, since time.Time) (int64, error)
}

type SnapshotCache interface {
	GetCostSnapshot(ctx context.Context) (model.CostSnapshot, bool, error)
	SetCostSnapshot(ctx context.Context, snap model.CostSnapshot, ttl time.Duration) error
}

type Notifier interface {
	Notify(ctx context.Context, title, message string, severity enums.AlertSeverity)
}

type Config struct {
	PerImage        float64
	DailyAlertUSD   float64
	MonthlyAlertUSD float64
	CacheTTL        time.Duration
	Location        *time.Location
}

// Service estimates provider spend from successful attempts.
type Service struct {
	usage    UsageCounter
	cache    SnapshotCache
	notifier Notifier
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(usage UsageCounter, cache SnapshotCache, notifier Notifier, cfg Config, logger *zap.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		usage:    usage,
		cache:    cache,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// EstimatedCost is the spend attributed to one attempt.
func (s *Service) EstimatedCost(numImages int) float64 {
	if numImages < 1 {
		numImages = 1
	}
	return roundCents(float64(numImages) * s.cfg.PerImage)
}

// Snapshot serves from the cache when possible. Cache failures fall
// through to the database.
func (s *Service) Snapshot(ctx context.Context) (model.CostSnapshot, error) {
	if s.cache != nil {
		snap, ok, err := s.cache.GetCostSnapshot(ctx)
		if err != nil {
			s.logger.Warn("read cost snapshot cache", zap.Error(err))
		} else if ok {
			return snap, nil
		}
	}

	snap, err := s.Compute(ctx)
	if err != nil {
		return model.CostSnapshot{}, err
	}

	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if err := s.cache.SetCostSnapshot(ctx, snap, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("write cost snapshot cache", zap.Error(err))
		}
	}
	return snap, nil
}

func (s *Service) Compute(ctx context.Context) (model.CostSnapshot, error) {
	if s.usage == nil {
		return model.CostSnapshot{}, apperr.New(apperr.FailedPrecondition, "Cost monitoring is not configured")
	}

	now := s.now()
	local := now.In(s.cfg.Location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.cfg.Location)

	daily, err := s.usage.CountSuccessfulSince(ctx, dayStart)
	if err != nil {
		return model.CostSnapshot{}, apperr.Wrap(apperr.Internal, "Failed to count daily usage", err)
	}
	monthly, err := s.usage.CountSuccessfulSince(ctx, monthStart)
	if err != nil {
		return model.CostSnapshot{}, apperr.Wrap(apperr.Internal, "Failed to count monthly usage", err)
	}

	return model.CostSnapshot{
		DailyImages:   daily,
		MonthlyImages: monthly,
		DailyCost:     roundCents(float64(daily) * s.cfg.PerImage),
		MonthlyCost:   roundCents(float64(monthly) * s.cfg.PerImage),
		ComputedAt:    now.UTC(),
	}, nil
}

// CheckThresholds alerts when spend passes the configured limits and
// reports how many alerts were raised.
func (s *Service) CheckThresholds(ctx context.Context, snap model.CostSnapshot) int {
	if s.notifier == nil {
		return 0
	}
	raised := 0
	if s.cfg.DailyAlertUSD > 0 && snap.DailyCost > s.cfg.DailyAlertUSD {
		s.notifier.Notify(ctx, "Daily cost threshold exceeded",
			fmt.Sprintf("Daily cost $%.2f exceeds $%.2f (%d images)", snap.DailyCost, s.cfg.DailyAlertUSD, snap.DailyImages),
			enums.AlertSeverityWarning)
		raised++
	}
	if s.cfg.MonthlyAlertUSD > 0 && snap.MonthlyCost > s.cfg.MonthlyAlertUSD {
		s.notifier.Notify(ctx, "Monthly cost threshold exceeded",
			fmt.Sprintf("Monthly cost $%.2f exceeds $%.2f (%d images)", snap.MonthlyCost, s.cfg.MonthlyAlertUSD, snap.MonthlyImages),
			enums.AlertSeverityCritical)
		raised++
	}
	return raised
}

func roundCents(v float64) float64 {
	return math.Round(v*10000) / 10000
}
