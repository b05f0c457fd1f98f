// v1
// internal/readings/redis.go
package readings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "greenhouse:snapshot:"

// RedisConfig selects the redis server holding shared snapshots.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore shares snapshots between replicas through redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

func redisKey(zone string) string { return redisKeyPrefix + strings.TrimSpace(zone) }

func (r *RedisStore) Put(ctx context.Context, s Snapshot) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(s.ZoneID), raw, r.ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, zone string) (Snapshot, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(zone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", zone, err)
	}
	return s, true, nil
}

func (r *RedisStore) Zones(ctx context.Context) ([]string, error) {
	var zones []string
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		zones = append(zones, strings.TrimPrefix(iter.Val(), redisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(zones)
	return zones, nil
}

func (r *RedisStore) Close() error { return r.client.Close() }
