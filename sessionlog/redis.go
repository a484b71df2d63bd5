package sessionlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

// RedisConfig for the Redis-backed transcript store. Defaults can be loaded
// via envdecode.
type RedisConfig struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all transcript keys. ENV: SESSIONLOG_KEY_PREFIX
	KeyPrefix string `env:"SESSIONLOG_KEY_PREFIX,default=mcp:transcripts:"`
}

// RedisStore appends JSON entries to a per-session Redis list. It suits
// fleets of browser workers whose transcripts are collected centrally.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis and scopes the store to one session.
func NewRedisStore(cfg RedisConfig, sessionID string) (*RedisStore, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "mcp:transcripts:"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: cl, key: prefix + sessionID}, nil
}

// NewRedisStoreFromEnv builds a RedisStore using envdecode to populate
// RedisConfig.
func NewRedisStoreFromEnv(sessionID string) (*RedisStore, error) {
	var cfg RedisConfig
	_ = envdecode.Decode(&cfg)
	return NewRedisStore(cfg, sessionID)
}

// Key returns the Redis key the session's entries are appended to.
func (s *RedisStore) Key() string { return s.key }

// Log implements Store.
func (s *RedisStore) Log(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal transcript entry: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, raw).Err(); err != nil {
		return fmt.Errorf("append transcript entry: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error { return s.client.Close() }
