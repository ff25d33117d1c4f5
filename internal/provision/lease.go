package provision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease serializes work on a key across processes. Acquire blocks until the
// lease is held or ctx ends; the returned func releases it.
type Lease interface {
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}

// ErrLeaseLost is returned by release when the lease expired and another
// holder took it over.
var ErrLeaseLost = errors.New("pull lease lost")

var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisLeaseOptions configures a RedisLease.
type RedisLeaseOptions struct {
	Prefix string
	TTL    time.Duration
	Poll   time.Duration
}

// RedisLease implements Lease with SET NX PX and a token-checked release. The
// lease is extended every TTL/3 while held so long pulls keep it.
type RedisLease struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

// NewRedisLease wraps client. Zero options fall back to a 10 minute TTL and a
// 500ms poll.
func NewRedisLease(client redis.UniversalClient, opts RedisLeaseOptions) *RedisLease {
	if opts.Prefix == "" {
		opts.Prefix = "encodegate:pull:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.Poll <= 0 {
		opts.Poll = 500 * time.Millisecond
	}
	return &RedisLease{client: client, prefix: opts.Prefix, ttl: opts.TTL, poll: opts.Poll}
}

func (l *RedisLease) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lease %s: %w", redisKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	go l.keepAlive(redisKey, token, stop)

	var once sync.Once
	release := func(ctx context.Context) error {
		once.Do(func() { close(stop) })
		deleted, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
		if err != nil {
			return fmt.Errorf("release lease %s: %w", redisKey, err)
		}
		if deleted == 0 {
			return ErrLeaseLost
		}
		return nil
	}
	return release, nil
}

func (l *RedisLease) keepAlive(key, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.poll+time.Second)
			extended, err := extendScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err == nil && extended == 0 {
				return
			}
		}
	}
}
