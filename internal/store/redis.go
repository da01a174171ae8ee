package store

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hostgate/domain-proxy/internal/errors"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

// Redis adapts a Redis client to the KV interface. Quota and rate-limit
// rejections from the server degrade to a miss (Get) or a dropped write
// (Put) instead of failing the request; every other error propagates.
type Redis struct {
	client *redis.Client
	logger *logger.Logger
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NewRedis creates a Redis-backed KV and verifies connectivity.
func NewRedis(ctx context.Context, cfg RedisConfig, log *logger.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Redis{
		client: client,
		logger: log.StoreLogger(),
	}, nil
}

// NewRedisFromClient wraps an existing client, for tests against miniature
// or shared servers.
func NewRedisFromClient(client *redis.Client, log *logger.Logger) *Redis {
	return &Redis{
		client: client,
		logger: log.StoreLogger(),
	}
}

// Get returns the stored bytes for key, nil on a miss or a degraded store.
func (r *Redis) Get(ctx context.Context, key string, _ ValueKind) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, nil
		}
		if isQuotaErr(err) {
			r.logger.WithError(errors.NewStoreQuotaError("get", err)).WithField("key", key).Warn("Store read degraded by quota limits")
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Put stores value under key with the given ttl. Quota rejections drop the
// write silently apart from a log line.
func (r *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		if isQuotaErr(err) {
			r.logger.WithError(errors.NewStoreQuotaError("put", err)).WithField("key", key).Warn("Store write dropped by quota limits")
			return nil
		}
		return err
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		if isQuotaErr(err) {
			r.logger.WithError(errors.NewStoreQuotaError("delete", err)).WithField("key", key).Warn("Store delete dropped by quota limits")
			return nil
		}
		return err
	}
	return nil
}

// List returns every stored key with the given prefix via SCAN.
func (r *Redis) List(ctx context.Context, prefix string) ([]Entry, error) {
	var entries []Entry

	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		entries = append(entries, Entry{Name: iter.Val()})
	}
	if err := iter.Err(); err != nil {
		if isQuotaErr(err) {
			r.logger.WithError(errors.NewStoreQuotaError("list", err)).WithField("prefix", prefix).Warn("Store list degraded by quota limits")
			return entries, nil
		}
		return nil, err
	}
	return entries, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// isQuotaErr recognizes quota and rate-limit rejections. Hosted Redis
// offerings report these as plain server errors, so matching is textual.
func isQuotaErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "max requests") ||
		strings.Contains(msg, "oom command not allowed")
}
