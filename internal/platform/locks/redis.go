package locks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisOptions struct {
	Addr   string
	Prefix string
	// TTL bounds how long a crashed holder can block a key.
	TTL   time.Duration
	Retry time.Duration
}

// RedisLocker is a Locker shared by every replica pointing at the same Redis.
type RedisLocker struct {
	rdb    goredis.UniversalClient
	log    *logger.Logger
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(log *logger.Logger, opts RedisOptions) (*RedisLocker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisLockerFromClient(log, rdb, opts), nil
}

func NewRedisLockerFromClient(log *logger.Logger, rdb goredis.UniversalClient, opts RedisOptions) *RedisLocker {
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = "contentline:lock:"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := opts.Retry
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	return &RedisLocker{
		rdb:    rdb,
		log:    log.With("service", "RedisLocker"),
		prefix: prefix,
		ttl:    ttl,
		retry:  retry,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	k := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	for {
		ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if wait <= 0 || time.Now().After(deadline) {
			return nil, ErrContended
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{k}, token).Err(); err != nil {
				l.log.Warn("redis lock release failed (ttl will expire it)", "key", key, "error", err)
			}
		})
	}, nil
}

func (l *RedisLocker) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}

// Client exposes the underlying connection for health probes.
func (l *RedisLocker) Client() goredis.UniversalClient {
	if l == nil {
		return nil
	}
	return l.rdb
}
