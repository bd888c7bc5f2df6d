package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

func TestCostSnapshotRoundTripAndExpiry(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewCacheRepo(client)
	ctx := context.Background()

	if _, ok, err := repo.GetCostSnapshot(ctx); err != nil || ok {
		t.Fatalf("expected miss on empty cache: ok=%v err=%v", ok, err)
	}

	snap := model.CostSnapshot{DailyImages: 12, DailyCost: 0.036}
	if err := repo.SetCostSnapshot(ctx, snap, time.Minute); err != nil {
		t.Fatalf("set snapshot: %v", err)
	}

	got, ok, err := repo.GetCostSnapshot(ctx)
	if err != nil || !ok {
		t.Fatalf("expected hit: ok=%v err=%v", ok, err)
	}
	if got.DailyImages != 12 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	mr.FastForward(61 * time.Second)
	if _, ok, _ := repo.GetCostSnapshot(ctx); ok {
		t.Fatalf("expected snapshot to expire")
	}
}

func TestWindowStateReportsCountAndTTL(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewRateRepo(client)
	ctx := context.Background()

	count, _, err := repo.WindowState(ctx, "burst:u1")
	if err != nil || count != 0 {
		t.Fatalf("expected empty window: count=%d err=%v", count, err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := repo.IncrementWindow(ctx, "burst:u1", time.Minute); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	count, ttl, err := repo.WindowState(ctx, "burst:u1")
	if err != nil {
		t.Fatalf("window state: %v", err)
	}
	if count != 3 || ttl <= 0 {
		t.Fatalf("unexpected state: count=%d ttl=%s", count, ttl)
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}
