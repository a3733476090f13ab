package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"ppobmart/internal/app/logger"
)

var _ Locker = (*Redis)(nil)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every instance talking to the same Redis.
// A holder that dies keeps the key until ttl expires.
type Redis struct {
	client    *redis.Client
	ttl       time.Duration
	retry     time.Duration
	keyPrefix string
}

type RedisOption func(*Redis)

func WithRetryInterval(d time.Duration) RedisOption {
	return func(r *Redis) {
		r.retry = d
	}
}

func WithKeyPrefix(p string) RedisOption {
	return func(r *Redis) {
		r.keyPrefix = p
	}
}

func NewRedis(client *redis.Client, ttl time.Duration, opts ...RedisOption) *Redis {
	r := &Redis{
		client:    client,
		ttl:       ttl,
		retry:     50 * time.Millisecond,
		keyPrefix: "ppobmart:lock:",
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Redis) LoggerComponent() string {
	return "Lock.Redis"
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.keyPrefix + key
	token := uuid.NewString()

	t := time.NewTicker(r.retry)
	defer t.Stop()

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := releaseScript.Run(ctx, r.client, []string{k}, token).Err(); err != nil {
				l := logger.Get(ctx, r)
				l.Error().Err(err).Str("key", k).Msg("Lock release failed")
			}
		})
	}, nil
}
