package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hetulpatel/hedj/internal/hashutil"
	"github.com/hetulpatel/hedj/internal/logging"
)

// RedisOptions configures the Redis-backed store.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	Prefix    string
	Retention time.Duration
}

type alertRecord struct {
	Key       string    `json:"key"`
	AlertedAt time.Time `json:"alerted_at"`
}

// RedisStore keeps one Redis key per alerted opportunity with a TTL equal to
// the retention window, so expiry is Redis' job. Marks are buffered and
// written by Save.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
	prefix    string
	pending   map[string]time.Time
	order     []string
}

// NewRedisStore builds a store keyed by a hash of the opportunity key.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisStore(client, opts), nil
}

func newRedisStore(client *redis.Client, opts RedisOptions) *RedisStore {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Prefix == "" {
		opts.Prefix = "hedj:alerted"
	}
	return &RedisStore{
		client:    client,
		retention: opts.Retention,
		prefix:    opts.Prefix,
		pending:   make(map[string]time.Time),
	}
}

func (s *RedisStore) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, hashutil.HashStrings(key))
}

func (s *RedisStore) IsNew(ctx context.Context, key string) (bool, error) {
	if _, ok := s.pending[key]; ok {
		return false, nil
	}
	n, err := s.client.Exists(ctx, s.redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n == 0, nil
}

func (s *RedisStore) Mark(_ context.Context, key string, now time.Time) error {
	if _, ok := s.pending[key]; ok {
		return nil
	}
	s.pending[key] = now.UTC()
	s.order = append(s.order, key)
	return nil
}

// Save writes pending marks with SET NX so a key alerted by a concurrent
// process keeps its original first-alerted time and TTL.
func (s *RedisStore) Save(ctx context.Context) error {
	if len(s.order) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, key := range s.order {
		payload, err := json.Marshal(alertRecord{Key: key, AlertedAt: s.pending[key]})
		if err != nil {
			return err
		}
		pipe.SetNX(ctx, s.redisKey(key), payload, s.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	logging.Debugf("[dedup] saved %d keys to redis", len(s.order))
	s.pending = make(map[string]time.Time)
	s.order = nil
	return nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
