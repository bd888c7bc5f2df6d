package costs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/enums"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	redrepo "github.com/JPJPKIMJP/AMLWD/internal/repo/redis"
)

type fakeUsage struct {
	bySince map[time.Time]int64
	calls   int
}

func (f *fakeUsage) CountSuccessfulSince(_ context.Context, since time.Time) (int64, error) {
	f.calls++
	return f.bySince[since.UTC()], nil
}

type captureNotifier struct {
	severities []enums.AlertSeverity
}

func (c *captureNotifier) Notify(_ context.Context, _, _ string, severity enums.AlertSeverity) {
	c.severities = append(c.severities, severity)
}

var now = time.Date(2026, 4, 15, 10, 30, 0, 0, time.UTC)

func newUsage(daily, monthly int64) *fakeUsage {
	return &fakeUsage{bySince: map[time.Time]int64{
		time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC): daily,
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC):  monthly,
	}}
}

func TestComputeMultipliesImagesByPrice(t *testing.T) {
	svc := NewService(newUsage(100, 2500), nil, nil, Config{PerImage: 0.003}, nil)
	svc.now = func() time.Time { return now }

	snap, err := svc.Compute(context.Background())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if snap.DailyImages != 100 || snap.MonthlyImages != 2500 {
		t.Fatalf("unexpected counts: %+v", snap)
	}
	if snap.DailyCost != 0.3 || snap.MonthlyCost != 7.5 {
		t.Fatalf("unexpected costs: daily=%v monthly=%v", snap.DailyCost, snap.MonthlyCost)
	}
}

func TestSnapshotIsCachedInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	usage := newUsage(1, 1)
	svc := NewService(usage, redrepo.NewCacheRepo(client), nil, Config{PerImage: 0.003, CacheTTL: time.Minute}, nil)
	svc.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := svc.Snapshot(context.Background()); err != nil {
			t.Fatalf("snapshot #%d: %v", i+1, err)
		}
	}
	if usage.calls != 2 {
		t.Fatalf("expected one computation (2 counts), got %d counts", usage.calls)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := svc.Snapshot(context.Background()); err != nil {
		t.Fatalf("snapshot after expiry: %v", err)
	}
	if usage.calls != 4 {
		t.Fatalf("expected recomputation after ttl, got %d counts", usage.calls)
	}
}

func TestCheckThresholds(t *testing.T) {
	notifier := &captureNotifier{}
	svc := NewService(nil, nil, notifier, Config{PerImage: 0.003, DailyAlertUSD: 10, MonthlyAlertUSD: 100}, nil)

	svc.CheckThresholds(context.Background(), model.CostSnapshot{DailyCost: 9, MonthlyCost: 30})
	if len(notifier.severities) != 0 {
		t.Fatalf("no alert expected at or below thresholds, got %v", notifier.severities)
	}

	raised := svc.CheckThresholds(context.Background(), model.CostSnapshot{DailyCost: 12, MonthlyCost: 120})
	if raised != 2 || notifier.severities[0] != enums.AlertSeverityWarning || notifier.severities[1] != enums.AlertSeverityCritical {
		t.Fatalf("unexpected alerts: raised=%d severities=%v", raised, notifier.severities)
	}
}

func TestEstimatedCost(t *testing.T) {
	svc := NewService(nil, nil, nil, Config{PerImage: 0.003}, nil)
	if got := svc.EstimatedCost(4); got != 0.012 {
		t.Fatalf("unexpected cost: %v", got)
	}
	if got := svc.EstimatedCost(0); got != 0.003 {
		t.Fatalf("zero images must count as one: %v", got)
	}
}
