package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

// UpsertDaily keeps one row per report date; a rerun overwrites it.
func (r *ReportRepo) UpsertDaily(ctx context.Context, rep model.DailyReport) error {
	if strings.TrimSpace(rep.ReportDate) == "" {
		return fmt.Errorf("report date is required")
	}
	if r.pool == nil {
		return ErrNoPool
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO daily_reports (
	report_date,
	daily_cost,
	monthly_cost,
	daily_images,
	monthly_images,
	ip_records_removed,
	orphan_attempts,
	unlinked_images,
	created_at
) VALUES ($1::date, $2, $3, $4, $5, $6, $7, $8, NOW())
ON CONFLICT (report_date) DO UPDATE SET
	daily_cost = EXCLUDED.daily_cost,
	monthly_cost = EXCLUDED.monthly_cost,
	daily_images = EXCLUDED.daily_images,
	monthly_images = EXCLUDED.monthly_images,
	ip_records_removed = EXCLUDED.ip_records_removed,
	orphan_attempts = EXCLUDED.orphan_attempts,
	unlinked_images = EXCLUDED.unlinked_images,
	created_at = NOW()
`,
		rep.ReportDate,
		rep.Costs.DailyCost,
		rep.Costs.MonthlyCost,
		rep.Costs.DailyImages,
		rep.Costs.MonthlyImages,
		rep.IPRecordsRemoved,
		rep.OrphanAttempts,
		rep.UnlinkedImages,
	); err != nil {
		return fmt.Errorf("upsert daily report: %w", err)
	}
	return nil
}
