package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

const defaultWriteTimeout = 5 * time.Second

type AttemptStore interface {
	Insert(ctx context.Context, a model.GenerationAttempt) error
}

// Recorder writes one attempt row per generation call. Failures are logged
// and never reach the caller.
type Recorder struct {
	store   AttemptStore
	timeout time.Duration
	logger  *zap.Logger
}

func NewRecorder(store AttemptStore, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, timeout: defaultWriteTimeout, logger: logger}
}

// Record detaches from ctx so a request that already timed out still
// leaves its audit row.
func (r *Recorder) Record(ctx context.Context, a model.GenerationAttempt) {
	if r == nil || r.store == nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.store.Insert(writeCtx, a); err != nil {
		r.logger.Error("record generation attempt",
			zap.String("attempt_id", a.ID.String()),
			zap.String("user_id", a.UserID),
			zap.Bool("success", a.Success),
			zap.Error(err),
		)
	}
}
