package keylock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type RedisOptions struct {
	Prefix string
	TTL    time.Duration
	Retry  time.Duration
}

// Redis is a SET NX PX lock. The lease is renewed every TTL/3 while held, so
// the TTL only bounds how long a crashed holder can block a key.
type Redis struct {
	rdb   *goredis.Client
	opts  RedisOptions
	local *Local
	log   *logger.Logger
}

func NewRedis(rdb *goredis.Client, opts RedisOptions, log *logger.Logger) (*Redis, error) {
	if rdb == nil {
		return nil, fmt.Errorf("keylock: redis client required")
	}
	if opts.Prefix == "" {
		opts.Prefix = "mastery:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.Retry <= 0 {
		opts.Retry = 25 * time.Millisecond
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Redis{rdb: rdb, opts: opts, local: NewLocal(), log: log.With("component", "RedisKeyLock")}, nil
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	// Same-process callers queue locally first so they don't spin on Redis.
	releaseLocal, err := r.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	redisKey := r.opts.Prefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(r.opts.Retry)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, redisKey, token, r.opts.TTL).Result()
		if err != nil {
			releaseLocal()
			return nil, types.Unavailable(fmt.Errorf("keylock: %w", err))
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			releaseLocal()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(redisKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(relCtx, r.rdb, []string{redisKey}, token).Err(); err != nil {
				r.log.Warn("lock release failed", "key", key, "error", err)
			}
			releaseLocal()
		})
	}, nil
}

func (r *Redis) keepAlive(redisKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(renewEvery(r.opts.TTL))
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.opts.TTL/3)
			n, err := extendScript.Run(ctx, r.rdb, []string{redisKey}, token, r.opts.TTL.Milliseconds()).Int()
			cancel()
			if err != nil {
				r.log.Warn("lock renew failed", "key", redisKey, "error", err)
				continue
			}
			if n == 0 {
				r.log.Error("lock lease lost", "key", redisKey)
				return
			}
		}
	}
}

func renewEvery(ttl time.Duration) time.Duration {
	d := ttl / 3
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
