package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

type memoryAttempts struct {
	attempts []model.GenerationAttempt
	linked   map[uuid.UUID]bool
	gotFrom  time.Time
	gotTo    time.Time
	err      error
}

func (m *memoryAttempts) ListOrphans(_ context.Context, from, to time.Time, limit int) ([]model.GenerationAttempt, error) {
	m.gotFrom, m.gotTo = from, to
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.GenerationAttempt, 0)
	for _, a := range m.attempts {
		if !a.Success || m.linked[a.ID] {
			continue
		}
		if a.CreatedAt.Before(from) || !a.CreatedAt.Before(to) {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fixedCounter struct {
	n     int64
	since time.Time
}

func (f *fixedCounter) CountUnlinkedSince(_ context.Context, since time.Time) (int64, error) {
	f.since = since
	return f.n, nil
}

func TestRunMatchesByAttemptID(t *testing.T) {
	now := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	saved := uuid.New()
	orphan := uuid.New()
	failed := uuid.New()
	tooFresh := uuid.New()
	tooOld := uuid.New()

	attempts := &memoryAttempts{
		attempts: []model.GenerationAttempt{
			{ID: saved, UserID: "u1", Success: true, Params: model.GenerationParams{Prompt: "same prompt"}, CreatedAt: now.Add(-3 * time.Hour)},
			{ID: orphan, UserID: "u1", Success: true, Params: model.GenerationParams{Prompt: "same prompt"}, CreatedAt: now.Add(-3 * time.Hour)},
			{ID: failed, UserID: "u2", Success: false, CreatedAt: now.Add(-2 * time.Hour)},
			{ID: tooFresh, UserID: "u2", Success: true, CreatedAt: now.Add(-10 * time.Minute)},
			{ID: tooOld, UserID: "u3", Success: true, CreatedAt: now.Add(-72 * time.Hour)},
		},
		linked: map[uuid.UUID]bool{saved: true},
	}
	images := &fixedCounter{n: 2}

	job := New(attempts, images, 48*time.Hour, time.Hour, nil)
	job.now = func() time.Time { return now }

	res, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run reconcile: %v", err)
	}
	if res.OrphanAttempts != 1 {
		t.Fatalf("expected exactly one orphan, got %d", res.OrphanAttempts)
	}
	if res.UnlinkedImages != 2 {
		t.Fatalf("unexpected unlinked count: %d", res.UnlinkedImages)
	}
	if !attempts.gotFrom.Equal(now.Add(-48*time.Hour)) || !attempts.gotTo.Equal(now.Add(-time.Hour)) {
		t.Fatalf("unexpected scan window [%s, %s)", attempts.gotFrom, attempts.gotTo)
	}
	if !images.since.Equal(now.Add(-48 * time.Hour)) {
		t.Fatalf("unexpected unlinked cutoff: %s", images.since)
	}
}

func TestRunPropagatesStoreErrors(t *testing.T) {
	job := New(&memoryAttempts{err: errors.New("connection reset")}, nil, time.Hour, 0, nil)

	if _, err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error from orphan listing")
	}
}

func TestRunWithoutStoresIsNoop(t *testing.T) {
	res, err := New(nil, nil, 0, 0, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res != (Result{}) {
		t.Fatalf("expected empty result, got %+v", res)
	}
}
