package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

var (
	ErrUnknownAttempt       = errors.New("generation attempt not found")
	ErrAttemptAlreadyLinked = errors.New("generation attempt already has a stored image")
)

type ImageRepo struct {
	pool *pgxpool.Pool
}

func NewImageRepo(pool *pgxpool.Pool) *ImageRepo {
	return &ImageRepo{pool: pool}
}

func (r *ImageRepo) Create(ctx context.Context, img model.StoredImage) (model.StoredImage, error) {
	if strings.TrimSpace(img.UserID) == "" || img.ImageURL == "" {
		return model.StoredImage{}, fmt.Errorf("invalid stored image payload")
	}
	if r.pool == nil {
		return model.StoredImage{}, ErrNoPool
	}

	meta := img.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return model.StoredImage{}, fmt.Errorf("marshal image metadata: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
INSERT INTO user_images (
	user_id,
	user_email,
	prompt,
	image_url,
	file_name,
	size_bytes,
	metadata,
	attempt_id,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, NOW())
RETURNING id, created_at
`, img.UserID, img.UserEmail, img.Prompt, img.ImageURL, img.FileName, img.SizeBytes, metaJSON, img.AttemptID).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		switch {
		case hasSQLState(err, sqlStateForeignKeyViolation):
			return model.StoredImage{}, ErrUnknownAttempt
		case hasSQLState(err, sqlStateUniqueViolation):
			return model.StoredImage{}, ErrAttemptAlreadyLinked
		}
		return model.StoredImage{}, fmt.Errorf("insert stored image: %w", err)
	}

	img.Metadata = meta
	return img, nil
}

// ListByUser pages newest first. HasMore is derived by reading one extra
// row past limit.
func (r *ImageRepo) ListByUser(ctx context.Context, userID string, limit int, startAfter *uuid.UUID) (model.ImagePage, error) {
	if strings.TrimSpace(userID) == "" || limit <= 0 {
		return model.ImagePage{}, fmt.Errorf("invalid image list payload")
	}
	if r.pool == nil {
		return model.ImagePage{Images: []model.StoredImage{}}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, user_email, prompt, image_url, file_name, size_bytes, metadata, attempt_id, created_at
FROM user_images
WHERE user_id = $1
	AND (
		$2::uuid IS NULL
		OR (created_at, id) < (SELECT c.created_at, c.id FROM user_images c WHERE c.id = $2 AND c.user_id = $1)
	)
ORDER BY created_at DESC, id DESC
LIMIT $3
`, userID, startAfter, limit+1)
	if err != nil {
		return model.ImagePage{}, fmt.Errorf("list stored images: %w", err)
	}
	defer rows.Close()

	images := make([]model.StoredImage, 0, limit+1)
	for rows.Next() {
		var (
			img      model.StoredImage
			metaJSON []byte
		)
		if err := rows.Scan(
			&img.ID,
			&img.UserID,
			&img.UserEmail,
			&img.Prompt,
			&img.ImageURL,
			&img.FileName,
			&img.SizeBytes,
			&metaJSON,
			&img.AttemptID,
			&img.CreatedAt,
		); err != nil {
			return model.ImagePage{}, fmt.Errorf("scan stored image: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &img.Metadata); err != nil {
				return model.ImagePage{}, fmt.Errorf("unmarshal image metadata: %w", err)
			}
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return model.ImagePage{}, fmt.Errorf("iterate stored images: %w", err)
	}

	hasMore := len(images) > limit
	if hasMore {
		images = images[:limit]
	}
	return model.ImagePage{Images: images, HasMore: hasMore}, nil
}

// CountUnlinkedSince counts stored images that carry no attempt_id.
func (r *ImageRepo) CountUnlinkedSince(ctx context.Context, since time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}
	var n int64
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM user_images WHERE attempt_id IS NULL AND created_at >= $1
`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unlinked images: %w", err)
	}
	return n, nil
}
