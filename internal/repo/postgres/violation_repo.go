package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

type ViolationRepo struct {
	pool *pgxpool.Pool
}

func NewViolationRepo(pool *pgxpool.Pool) *ViolationRepo {
	return &ViolationRepo{pool: pool}
}

// Record stores the violation and returns the user's running total.
func (r *ViolationRepo) Record(ctx context.Context, v model.ContentViolation) (int, error) {
	if v.UserID == "" {
		return 0, fmt.Errorf("invalid violation payload")
	}

	var count int
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO content_violations (user_id, user_email, prompt, reason, flagged_keyword, ip, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
`, v.UserID, v.UserEmail, v.Prompt, v.Reason, v.FlaggedKeyword, v.IP); err != nil {
			return fmt.Errorf("insert content violation: %w", err)
		}

		if err := tx.QueryRow(ctx, `
INSERT INTO user_violations (user_id, count, last_violation)
VALUES ($1, 1, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	count = user_violations.count + 1,
	last_violation = NOW()
RETURNING count
`, v.UserID).Scan(&count); err != nil {
			return fmt.Errorf("increment user violations: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
