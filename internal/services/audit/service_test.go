package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

type recordingStore struct {
	rows   []model.GenerationAttempt
	ctxErr error
	err    error
}

func (s *recordingStore) Insert(ctx context.Context, a model.GenerationAttempt) error {
	s.ctxErr = ctx.Err()
	s.rows = append(s.rows, a)
	return s.err
}

func TestRecordWritesEvenWhenRequestContextIsDone(t *testing.T) {
	store := &recordingStore{}
	rec := NewRecorder(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec.Record(ctx, model.GenerationAttempt{ID: uuid.New(), UserID: "u1", Success: false, ErrorCode: "deadline-exceeded"})

	if len(store.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(store.rows))
	}
	if store.ctxErr != nil {
		t.Fatalf("write context must not inherit cancellation: %v", store.ctxErr)
	}
}

func TestRecordSwallowsStoreErrors(t *testing.T) {
	store := &recordingStore{err: errors.New("connection reset")}
	rec := NewRecorder(store, nil)

	rec.Record(context.Background(), model.GenerationAttempt{ID: uuid.New()})

	if len(store.rows) != 1 {
		t.Fatalf("expected insert attempt, got %d", len(store.rows))
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	rec.Record(context.Background(), model.GenerationAttempt{})
	NewRecorder(nil, nil).Record(context.Background(), model.GenerationAttempt{})
}
