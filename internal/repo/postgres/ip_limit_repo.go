package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

type IPLimitRepo struct {
	pool    *pgxpool.Pool
	retries int
}

func NewIPLimitRepo(pool *pgxpool.Pool, retries int) *IPLimitRepo {
	return &IPLimitRepo{pool: pool, retries: retries}
}

func (r *IPLimitRepo) Update(ctx context.Context, ip string, fn func(w *model.IPWindow, exists bool) error) error {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return fmt.Errorf("invalid ip window payload")
	}
	if r.pool == nil {
		return ErrNoPool
	}

	return WithSerializableTx(ctx, r.pool, r.retries, func(ctx context.Context, tx pgx.Tx) error {
		w := model.IPWindow{IP: ip}
		exists := true
		err := tx.QueryRow(ctx, `
SELECT requests, first_seen
FROM ip_rate_limits
WHERE ip = $1
FOR UPDATE
`, ip).Scan(&w.Requests, &w.FirstSeen)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("lock ip window: %w", err)
			}
			exists = false
		}

		if err := fn(&w, exists); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
INSERT INTO ip_rate_limits (ip, requests, first_seen, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (ip) DO UPDATE SET
	requests = EXCLUDED.requests,
	updated_at = NOW()
`, ip, w.Requests, w.FirstSeen); err != nil {
			return fmt.Errorf("write ip window: %w", err)
		}
		return nil
	})
}

// DeleteStale removes windows with no accepted request since cutoff.
func (r *IPLimitRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM ip_rate_limits WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale ip windows: %w", err)
	}
	return tag.RowsAffected(), nil
}
