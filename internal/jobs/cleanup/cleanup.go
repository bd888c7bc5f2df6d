package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/rules"
	"github.com/JPJPKIMJP/AMLWD/internal/jobs/reconcile"
)

type staleIPCleaner interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type costMonitor interface {
	Compute(ctx context.Context) (model.CostSnapshot, error)
	CheckThresholds(ctx context.Context, snap model.CostSnapshot) int
}

type reconciler interface {
	Run(ctx context.Context) (reconcile.Result, error)
}

type reportWriter interface {
	UpsertDaily(ctx context.Context, rep model.DailyReport) error
}

type Dependencies struct {
	IPWindows  staleIPCleaner
	Costs      costMonitor
	Reconciler reconciler
	Reports    reportWriter
}

// Job is the daily maintenance pass: it prunes idle IP windows, checks
// spend against the alert thresholds, reconciles attempts with saved
// images and writes one daily_reports row.
type Job struct {
	deps        Dependencies
	ipRetention time.Duration
	location    *time.Location
	now         func() time.Time
	logger      *zap.Logger
}

func New(deps Dependencies, ipRetention time.Duration, location *time.Location, logger *zap.Logger) *Job {
	if ipRetention <= 0 {
		ipRetention = 30 * 24 * time.Hour
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		deps:        deps,
		ipRetention: ipRetention,
		location:    location,
		now:         time.Now,
		logger:      logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	now := j.now()
	report := model.DailyReport{ReportDate: rules.DayKey(now, j.location)}

	if j.deps.IPWindows != nil {
		cutoff := now.Add(-j.ipRetention)
		removed, err := j.deps.IPWindows.DeleteStale(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("delete stale ip windows: %w", err)
		}
		report.IPRecordsRemoved = removed
		if removed > 0 {
			j.logger.Info("cleanup stale ip windows completed", zap.Int64("deleted", removed))
		}
	}

	if j.deps.Costs != nil {
		snap, err := j.deps.Costs.Compute(ctx)
		if err != nil {
			return fmt.Errorf("compute costs: %w", err)
		}
		report.Costs = snap
		if alerts := j.deps.Costs.CheckThresholds(ctx, snap); alerts > 0 {
			j.logger.Warn("cost thresholds exceeded",
				zap.Int("alerts", alerts),
				zap.Float64("daily_cost", snap.DailyCost),
				zap.Float64("monthly_cost", snap.MonthlyCost),
			)
		}
	}

	if j.deps.Reconciler != nil {
		res, err := j.deps.Reconciler.Run(ctx)
		if err != nil {
			return fmt.Errorf("reconcile attempts: %w", err)
		}
		report.OrphanAttempts = res.OrphanAttempts
		report.UnlinkedImages = res.UnlinkedImages
	}

	if j.deps.Reports == nil {
		return nil
	}
	if err := j.deps.Reports.UpsertDaily(ctx, report); err != nil {
		return fmt.Errorf("write daily report: %w", err)
	}

	j.logger.Info("daily report written", zap.String("report_date", report.ReportDate))
	return nil
}
