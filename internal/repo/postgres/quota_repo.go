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

type QuotaRepo struct {
	pool    *pgxpool.Pool
	retries int
}

func NewQuotaRepo(pool *pgxpool.Pool, retries int) *QuotaRepo {
	return &QuotaRepo{pool: pool, retries: retries}
}

func (r *QuotaRepo) Get(ctx context.Context, userID string) (model.UserQuota, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return model.UserQuota{}, false, fmt.Errorf("invalid quota lookup payload")
	}
	if r.pool == nil {
		return model.UserQuota{}, false, ErrNoPool
	}

	q, err := scanQuota(r.pool.QueryRow(ctx, selectQuotaSQL+`WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UserQuota{}, false, nil
		}
		return model.UserQuota{}, false, fmt.Errorf("get user quota: %w", err)
	}
	return q, true, nil
}

// Update locks the user's row, lets fn mutate it and writes it back, all in
// one serializable transaction. An error from fn aborts without writing.
func (r *QuotaRepo) Update(ctx context.Context, userID string, fn func(q *model.UserQuota, exists bool) error) (model.UserQuota, error) {
	if strings.TrimSpace(userID) == "" {
		return model.UserQuota{}, fmt.Errorf("invalid quota update payload")
	}
	if r.pool == nil {
		return model.UserQuota{}, ErrNoPool
	}

	var out model.UserQuota
	err := WithSerializableTx(ctx, r.pool, r.retries, func(ctx context.Context, tx pgx.Tx) error {
		exists := true
		q, err := scanQuota(tx.QueryRow(ctx, selectQuotaSQL+`WHERE user_id = $1 FOR UPDATE`, userID))
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("lock user quota: %w", err)
			}
			exists = false
			q = model.UserQuota{UserID: userID}
		}

		if err := fn(&q, exists); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
INSERT INTO user_quotas (
	user_id,
	email,
	last_request_date,
	request_count,
	is_premium,
	last_ip,
	created_at,
	updated_at
) VALUES ($1, $2, $3::date, $4, $5, $6, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
	email = EXCLUDED.email,
	last_request_date = EXCLUDED.last_request_date,
	request_count = EXCLUDED.request_count,
	last_ip = EXCLUDED.last_ip,
	updated_at = NOW()
`, userID, q.Email, q.LastRequestDate, q.RequestCount, q.IsPremium, q.LastIP); err != nil {
			return fmt.Errorf("write user quota: %w", err)
		}

		out = q
		return nil
	})
	if err != nil {
		return model.UserQuota{}, err
	}
	return out, nil
}

// SetPremium creates the row for users who have not generated yet.
func (r *QuotaRepo) SetPremium(ctx context.Context, userID string, premium bool) error {
	if r.pool == nil {
		return ErrNoPool
	}
	if _, err := r.pool.Exec(ctx, `
INSERT INTO user_quotas (user_id, last_request_date, request_count, is_premium, created_at, updated_at)
VALUES ($1, CURRENT_DATE, 0, $2, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
	is_premium = EXCLUDED.is_premium,
	updated_at = NOW()
`, userID, premium); err != nil {
		return fmt.Errorf("set premium flag: %w", err)
	}
	return nil
}

const selectQuotaSQL = `
SELECT
	user_id,
	email,
	to_char(last_request_date, 'YYYY-MM-DD'),
	request_count,
	is_premium,
	last_ip,
	created_at,
	updated_at
FROM user_quotas
`

func scanQuota(row pgx.Row) (model.UserQuota, error) {
	var q model.UserQuota
	err := row.Scan(
		&q.UserID,
		&q.Email,
		&q.LastRequestDate,
		&q.RequestCount,
		&q.IsPremium,
		&q.LastIP,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	return q, err
}
