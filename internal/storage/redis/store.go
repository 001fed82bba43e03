package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"balancedScope/internal/model"
)

// DefaultKey is the hash holding the latest pool snapshots.
const DefaultKey = "balanced:pools"

// Store keeps the latest scan in a Redis hash keyed by pool ID.
// The scan time is stored under <key>:scanned_at.
type Store struct {
	client *goredis.Client
	key    string
}

func NewStore(ctx context.Context, addr, key string) (*Store, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if key == "" {
		key = DefaultKey
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client, key: key}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// PutPools replaces the hash content with the scanned pools in one transaction.
func (s *Store) PutPools(ctx context.Context, pools []model.NormalizedPool, scannedAt time.Time) error {
	snaps, err := model.NewPoolSnapshots(pools, scannedAt)
	if err != nil {
		return fmt.Errorf("build snapshots: %w", err)
	}
	fields, err := hashFields(snaps)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, s.key, fields)
		}
		pipe.Set(ctx, s.key+":scanned_at", scannedAt.UTC().Format(time.RFC3339Nano), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write redis: %w", err)
	}
	return nil
}

func hashFields(snaps []model.PoolSnapshot) (map[string]any, error) {
	fields := make(map[string]any, len(snaps))
	for _, snap := range snaps {
		data, err := json.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("marshal pool %d: %w", snap.PoolID, err)
		}
		fields[strconv.FormatUint(snap.PoolID, 10)] = string(data)
	}
	return fields, nil
}
