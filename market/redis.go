package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const instrumentsKey = "history:instruments"

// RedisMirror keeps a copy of every instrument's history in Redis so a
// restarted bot can resume without a fresh warmup.
type RedisMirror struct {
	client *redis.Client
	limit  int
}

func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client, limit: MaxHistory}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func historyKey(instrument string) string {
	return "history:" + instrument
}

// Append stores p in the instrument's sorted set, scored by timestamp, and
// trims the set to the newest points.
func (m *RedisMirror) Append(ctx context.Context, instrument string, p PricePoint) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal price point: %w", err)
	}

	key := historyKey(instrument)
	pipe := m.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(p.Time.UnixMilli()),
		Member: data,
	})
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-m.limit-1))
	pipe.SAdd(ctx, instrumentsKey, instrument)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror %s: %w", instrument, err)
	}
	return nil
}

// Load returns the mirrored history of instrument, oldest first.
func (m *RedisMirror) Load(ctx context.Context, instrument string) ([]PricePoint, error) {
	members, err := m.client.ZRange(ctx, historyKey(instrument), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s: %w", instrument, err)
	}

	out := make([]PricePoint, 0, len(members))
	for _, raw := range members {
		var p PricePoint
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode %s point: %w", instrument, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Instruments lists every instrument that has a mirrored history.
func (m *RedisMirror) Instruments(ctx context.Context) ([]string, error) {
	names, err := m.client.SMembers(ctx, instrumentsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list mirrored instruments: %w", err)
	}
	return names, nil
}

func (m *RedisMirror) Close() error {
	return m.client.Close()
}
