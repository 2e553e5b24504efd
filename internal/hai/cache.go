package hai

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tawf-labs/amana-reserve/internal/platform/redis"
)

const (
	latestSnapshotKey = "hai:snapshot:latest"
	snapshotTTL       = 5 * time.Minute
)

// SnapshotCache keeps the latest snapshot in Redis so read-heavy score
// consumers skip the database. A nil cache is a no-op.
type SnapshotCache struct {
	client *redis.Client
}

func NewSnapshotCache(client *redis.Client) *SnapshotCache {
	if client == nil {
		return nil
	}
	return &SnapshotCache{client: client}
}

func (c *SnapshotCache) Put(ctx context.Context, snapshot *Snapshot) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, latestSnapshotKey, raw, snapshotTTL).Err()
}

func (c *SnapshotCache) Get(ctx context.Context) (*Snapshot, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, latestSnapshotKey).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			return nil, false
		}
		return nil, false
	}
	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, false
	}
	return &snapshot, true
}
