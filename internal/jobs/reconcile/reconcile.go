// Package reconcile reports generations whose image was never saved and
// saved images that carry no attempt id. The join key is
// user_images.attempt_id; prompts are never compared.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

const defaultBatch = 500

type OrphanLister interface {
	ListOrphans(ctx context.Context, from, to time.Time, limit int) ([]model.GenerationAttempt, error)
}

type UnlinkedCounter interface {
	CountUnlinkedSince(ctx context.Context, since time.Time) (int64, error)
}

type Result struct {
	OrphanAttempts int64
	UnlinkedImages int64
}

type Job struct {
	attempts OrphanLister
	images   UnlinkedCounter
	lookback time.Duration
	grace    time.Duration
	batch    int
	now      func() time.Time
	logger   *zap.Logger
}

// New scans [now-lookback, now-grace). The grace period leaves clients
// time to save an image after generation finishes.
func New(attempts OrphanLister, images UnlinkedCounter, lookback, grace time.Duration, logger *zap.Logger) *Job {
	if lookback <= 0 {
		lookback = 48 * time.Hour
	}
	if grace < 0 {
		grace = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		attempts: attempts,
		images:   images,
		lookback: lookback,
		grace:    grace,
		batch:    defaultBatch,
		now:      time.Now,
		logger:   logger,
	}
}

func (j *Job) Run(ctx context.Context) (Result, error) {
	var res Result
	now := j.now().UTC()
	from := now.Add(-j.lookback)
	to := now.Add(-j.grace)

	if j.attempts != nil && to.After(from) {
		orphans, err := j.attempts.ListOrphans(ctx, from, to, j.batch)
		if err != nil {
			return Result{}, fmt.Errorf("list orphan attempts: %w", err)
		}
		for _, a := range orphans {
			j.logger.Info("generation without saved image",
				zap.String("attempt_id", a.ID.String()),
				zap.String("user_id", a.UserID),
				zap.Time("created_at", a.CreatedAt),
			)
		}
		res.OrphanAttempts = int64(len(orphans))
		if len(orphans) == j.batch {
			j.logger.Warn("orphan scan hit batch limit", zap.Int("batch", j.batch))
		}
	}

	if j.images != nil {
		n, err := j.images.CountUnlinkedSince(ctx, from)
		if err != nil {
			return Result{}, fmt.Errorf("count unlinked images: %w", err)
		}
		res.UnlinkedImages = n
	}

	j.logger.Info("reconciliation completed",
		zap.Int64("orphan_attempts", res.OrphanAttempts),
		zap.Int64("unlinked_images", res.UnlinkedImages),
	)
	return res, nil
}
