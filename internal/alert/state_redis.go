package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key RedisState uses when none is configured.
const DefaultRedisKey = "airwatch:alert_state"

var _ StateRepository = (*RedisState)(nil)

// RedisConfig selects the Redis server for RedisState.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type redisAlertState struct {
	LastSentAt time.Time `json:"last_sent_at"`
}

// RedisState stores alert state as a JSON document under one key, so several
// monitor processes can share one cooldown.
type RedisState struct {
	client *redis.Client
	key    string
}

// NewRedisState creates a RedisState. An empty key selects DefaultRedisKey.
func NewRedisState(client *redis.Client, key string) *RedisState {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisState{client: client, key: key}
}

// NewRedisClient opens a client from cfg.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (r *RedisState) LastSent(ctx context.Context) (time.Time, bool, error) {
	return r.read(ctx, r.client)
}

// SetLastSent writes t inside a WATCH transaction so a concurrent writer
// cannot move the value backwards.
func (r *RedisState) SetLastSent(ctx context.Context, t time.Time) error {
	data, err := json.Marshal(redisAlertState{LastSentAt: t.UTC()})
	if err != nil {
		return fmt.Errorf("marshal alert state: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		current, ok, err := r.read(ctx, tx)
		if err != nil {
			return err
		}
		if ok && !t.After(current) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, data, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err = r.client.Watch(ctx, txf, r.key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("set alert state in redis: %w", err)
	}
	return nil
}

func (r *RedisState) read(ctx context.Context, c redis.Cmdable) (time.Time, bool, error) {
	data, err := c.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get alert state from redis: %w", err)
	}

	var st redisAlertState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return time.Time{}, false, fmt.Errorf("unmarshal alert state: %w", err)
	}
	if st.LastSentAt.IsZero() {
		return time.Time{}, false, nil
	}
	return st.LastSentAt, true, nil
}
