package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminRepo struct {
	pool *pgxpool.Pool
}

func NewAdminRepo(pool *pgxpool.Pool) *AdminRepo {
	return &AdminRepo{pool: pool}
}

func (r *AdminRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if r.pool == nil || userID == "" {
		return false, nil
	}
	var isAdmin bool
	err := r.pool.QueryRow(ctx, `SELECT is_admin FROM admins WHERE user_id = $1`, userID).Scan(&isAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup admin: %w", err)
	}
	return isAdmin, nil
}
