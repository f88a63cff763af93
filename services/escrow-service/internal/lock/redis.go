// services/escrow-service/internal/lock/redis.go
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another instance is never released by us.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// RedisClient is the part of a go-redis client the locker uses.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd
}

// RedisLocker serializes a key across every engine instance sharing one
// Redis. The TTL bounds how long a crashed holder can block others; it must
// be longer than any unit of work.
type RedisLocker struct {
	rdb       RedisClient
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
	log       *logger.Logger
}

type RedisOption func(*RedisLocker)

func WithTTL(ttl time.Duration) RedisOption {
	return func(l *RedisLocker) { l.ttl = ttl }
}

func WithRetryWait(d time.Duration) RedisOption {
	return func(l *RedisLocker) { l.retryWait = d }
}

func WithPrefix(prefix string) RedisOption {
	return func(l *RedisLocker) { l.prefix = prefix }
}

func NewRedisLocker(rdb RedisClient, log *logger.Logger, opts ...RedisOption) *RedisLocker {
	if log == nil {
		log = logger.NewNop()
	}
	l := &RedisLocker{
		rdb:       rdb,
		prefix:    "escrow:lock:",
		ttl:       30 * time.Second,
		retryWait: 25 * time.Millisecond,
		log:       log.With("component", "RedisLocker"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewRedisClient dials addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire %s: %w", redisKey, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(l.retryWait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must run even when the caller's ctx is already done.
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			n, err := l.rdb.Eval(relCtx, releaseScript, []string{redisKey}, token).Int64()
			if err != nil && !errors.Is(err, goredis.Nil) {
				l.log.Warn("lock release failed", "key", redisKey, "error", err)
				return
			}
			if n == 0 {
				l.log.Warn("lock expired before release", "key", redisKey, "ttl", l.ttl)
			}
		})
	}, nil
}
