package session

import (
	"context"
	"crypto/tls"
	"errors"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "webchat:state:"

// RedisOptions configures the redis-backed Store.
type RedisOptions struct {
	Addr     string
	Password string
	TLS      bool
	// Client overrides Addr/Password/TLS when set; used by tests.
	Client *redis.Client
}

// RedisStore implements Store on a redis instance. Used when the widget
// core runs server-side (kiosk deployments) and state must survive the
// host process.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a redis-backed store.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := opts.Client
	if client == nil {
		if opts.Addr == "" {
			return nil, errors.New("session: redis addr is empty")
		}
		ropts := &redis.Options{Addr: opts.Addr, Password: opts.Password}
		if opts.TLS {
			ropts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client = redis.NewClient(ropts)
	}
	return &RedisStore{client: client}, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, redisKeyPrefix+key, value, 0).Err()
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
