package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

type AttemptRepo struct {
	pool *pgxpool.Pool
}

func NewAttemptRepo(pool *pgxpool.Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

func (r *AttemptRepo) Insert(ctx context.Context, a model.GenerationAttempt) error {
	if a.ID == uuid.Nil {
		return fmt.Errorf("attempt id is required")
	}
	if r.pool == nil {
		return ErrNoPool
	}

	p := a.Params
	if _, err := r.pool.Exec(ctx, `
INSERT INTO generation_attempts (
	id,
	user_id,
	user_email,
	prompt,
	negative_prompt,
	width,
	height,
	steps,
	guidance_scale,
	seed,
	num_images,
	lora_name,
	success,
	error_code,
	error,
	processing_ms,
	ip,
	estimated_cost,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
`,
		a.ID,
		a.UserID,
		a.UserEmail,
		p.Prompt,
		p.NegativePrompt,
		p.Width,
		p.Height,
		p.Steps,
		p.GuidanceScale,
		p.Seed,
		p.NumImages,
		p.LoraName,
		a.Success,
		a.ErrorCode,
		a.Error,
		a.ProcessingMS,
		a.IP,
		a.EstimatedCost,
		a.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert generation attempt: %w", err)
	}
	return nil
}

// CountSuccessfulSince counts images produced, not attempts: a multi-image
// attempt contributes num_images.
func (r *AttemptRepo) CountSuccessfulSince(ctx context.Context, since time.Time) (int64, error) {
	if r.pool == nil {
		return 0, ErrNoPool
	}
	var n int64
	if err := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(num_images), 0)::BIGINT
FROM generation_attempts
WHERE success AND created_at >= $1
`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count successful attempts: %w", err)
	}
	return n, nil
}

func (r *AttemptRepo) Exists(ctx context.Context, id uuid.UUID, userID string) (bool, error) {
	if r.pool == nil {
		return false, ErrNoPool
	}
	var ok bool
	if err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM generation_attempts WHERE id = $1 AND user_id = $2 AND success)
`, id, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check generation attempt: %w", err)
	}
	return ok, nil
}

// ListOrphans returns successful attempts in [from, to) that no stored
// image references through attempt_id.
func (r *AttemptRepo) ListOrphans(ctx context.Context, from, to time.Time, limit int) ([]model.GenerationAttempt, error) {
	if r.pool == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT a.id, a.user_id, a.prompt, a.created_at
FROM generation_attempts a
LEFT JOIN user_images i ON i.attempt_id = a.id
WHERE a.success
	AND a.created_at >= $1
	AND a.created_at < $2
	AND i.id IS NULL
ORDER BY a.created_at
LIMIT $3
`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("list orphan attempts: %w", err)
	}
	defer rows.Close()

	out := make([]model.GenerationAttempt, 0)
	for rows.Next() {
		var a model.GenerationAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.Params.Prompt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan orphan attempt: %w", err)
		}
		a.Success = true
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orphan attempts: %w", err)
	}
	return out, nil
}
