package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

type BlockRepo struct {
	pool *pgxpool.Pool
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

// Get returns nil when the user has no block record.
func (r *BlockRepo) Get(ctx context.Context, userID string) (*model.BlockRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid block lookup payload")
	}
	if r.pool == nil {
		return nil, nil
	}

	var rec model.BlockRecord
	err := r.pool.QueryRow(ctx, `
SELECT user_id, permanent_ban, reason, suspended_until, blocked_by, created_at
FROM blocked_users
WHERE user_id = $1
`, userID).Scan(&rec.UserID, &rec.PermanentBan, &rec.Reason, &rec.SuspendedUntil, &rec.BlockedBy, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get block record: %w", err)
	}
	return &rec, nil
}

func (r *BlockRepo) Upsert(ctx context.Context, rec model.BlockRecord) error {
	if strings.TrimSpace(rec.UserID) == "" {
		return fmt.Errorf("invalid block payload")
	}
	if r.pool == nil {
		return ErrNoPool
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO blocked_users (
	user_id,
	permanent_ban,
	reason,
	suspended_until,
	blocked_by,
	created_at
) VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	permanent_ban = EXCLUDED.permanent_ban,
	reason = EXCLUDED.reason,
	suspended_until = EXCLUDED.suspended_until,
	blocked_by = EXCLUDED.blocked_by,
	created_at = NOW()
`, rec.UserID, rec.PermanentBan, strings.TrimSpace(rec.Reason), rec.SuspendedUntil, rec.BlockedBy); err != nil {
		return fmt.Errorf("upsert block record: %w", err)
	}
	return nil
}

func (r *BlockRepo) Delete(ctx context.Context, userID string) (bool, error) {
	if r.pool == nil {
		return false, ErrNoPool
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocked_users WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete block record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
