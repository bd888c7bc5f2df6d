package maintenanceapp

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/config"
	"github.com/JPJPKIMJP/AMLWD/internal/infra/alert"
	"github.com/JPJPKIMJP/AMLWD/internal/infra/httpclient"
	"github.com/JPJPKIMJP/AMLWD/internal/jobs/cleanup"
	"github.com/JPJPKIMJP/AMLWD/internal/jobs/reconcile"
	pgrepo "github.com/JPJPKIMJP/AMLWD/internal/repo/postgres"
	costssvc "github.com/JPJPKIMJP/AMLWD/internal/services/costs"
	quotasvc "github.com/JPJPKIMJP/AMLWD/internal/services/quota"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	postgres   *pgxpool.Pool
	notifier   *alert.Notifier
	cleanupJob *cleanup.Job
}

// New needs Postgres; every step of the job reads or writes it. Costs
// are always recomputed, so the Redis snapshot cache is not used here.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("init postgres for maintenance app: %w", err)
	}

	notifier := alert.FromConfig(cfg.Alerts, httpclient.New(cfg.Alerts.Timeout), logger)
	location := quotasvc.LoadLocation(cfg.Quota.Timezone)

	attemptRepo := pgrepo.NewAttemptRepo(pool)
	costService := costssvc.NewService(attemptRepo, nil, notifier, costssvc.Config{
		PerImage:        cfg.Costs.PerImage,
		DailyAlertUSD:   cfg.Costs.DailyAlertUSD,
		MonthlyAlertUSD: cfg.Costs.MonthlyAlertUSD,
		CacheTTL:        cfg.Costs.CacheTTL,
		Location:        location,
	}, logger)
	reconcileJob := reconcile.New(
		attemptRepo,
		pgrepo.NewImageRepo(pool),
		cfg.Maintenance.ReconcileLookback,
		cfg.Maintenance.OrphanGrace,
		logger,
	)
	cleanupJob := cleanup.New(cleanup.Dependencies{
		IPWindows:  pgrepo.NewIPLimitRepo(pool, cfg.Quota.TxRetries),
		Costs:      costService,
		Reconciler: reconcileJob,
		Reports:    pgrepo.NewReportRepo(pool),
	}, cfg.Maintenance.IPRetention, location, logger)

	return &App{
		cfg:        cfg,
		logger:     logger,
		postgres:   pool,
		notifier:   notifier,
		cleanupJob: cleanupJob,
	}, nil
}

// RunOnce runs a single maintenance pass.
func (a *App) RunOnce(ctx context.Context) error {
	return a.cleanupJob.Run(ctx)
}

// Run executes a pass immediately and then on every interval tick until
// ctx is cancelled. A failed pass is logged and retried on the next tick.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("maintenance app started")

	interval := a.cfg.Maintenance.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	a.runPass(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("maintenance app stopped")
			return nil
		case <-ticker.C:
			a.runPass(ctx)
		}
	}
}

func (a *App) runPass(ctx context.Context) {
	if err := a.cleanupJob.Run(ctx); err != nil && ctx.Err() == nil {
		a.logger.Error("maintenance pass failed", zap.Error(err))
	}
}

func (a *App) Close() {
	a.notifier.Wait()
	if a.postgres != nil {
		a.postgres.Close()
	}
}
