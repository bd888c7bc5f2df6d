package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

const costSnapshotKey = "imagegen:costs:snapshot"

// CacheRepo holds short-lived derived values. A miss is (zero, false, nil).
type CacheRepo struct {
	client *goredis.Client
}

func NewCacheRepo(client *goredis.Client) *CacheRepo {
	return &CacheRepo{client: client}
}

func (r *CacheRepo) GetCostSnapshot(ctx context.Context) (model.CostSnapshot, bool, error) {
	if r.client == nil {
		return model.CostSnapshot{}, false, nil
	}
	raw, err := r.client.Get(ctx, costSnapshotKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return model.CostSnapshot{}, false, nil
	}
	if err != nil {
		return model.CostSnapshot{}, false, fmt.Errorf("get cost snapshot: %w", err)
	}

	var snap model.CostSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.CostSnapshot{}, false, fmt.Errorf("decode cost snapshot: %w", err)
	}
	return snap, true, nil
}

func (r *CacheRepo) SetCostSnapshot(ctx context.Context, snap model.CostSnapshot, ttl time.Duration) error {
	if r.client == nil || ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cost snapshot: %w", err)
	}
	if err := r.client.Set(ctx, costSnapshotKey, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set cost snapshot: %w", err)
	}
	return nil
}
