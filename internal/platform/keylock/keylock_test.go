package keylock

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(ctx, Key("u1", "skill"))
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	if maxSeen != 1 || counter != 50 {
		t.Fatalf("maxSeen=%d counter=%d", maxSeen, counter)
	}
	if n := l.size(); n != 0 {
		t.Fatalf("entries leaked: %d", n)
	}
}

func TestLocalDistinctKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	r1, err := l.Lock(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	defer r1()
	r2, err := l.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("second key blocked: %v", err)
	}
	r2()
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal()
	release, _ := l.Lock(context.Background(), "k")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v", err)
	}
	release()
	release()
	if n := l.size(); n != 0 {
		t.Fatalf("entries leaked: %d", n)
	}
}

func TestRedisLock(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	l, err := NewRedis(rdb, RedisOptions{Prefix: "test:lock:", TTL: time.Second}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	key := Key("u1", time.Now().Format(time.RFC3339Nano))

	release, err := l.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	other, _ := NewRedis(rdb, RedisOptions{Prefix: "test:lock:", TTL: time.Second}, nil)
	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := other.Lock(short, key); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected contention, err=%v", err)
	}

	release()
	r2, err := other.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	r2()
}

func TestRenewEvery(t *testing.T) {
	if got := renewEvery(9 * time.Second); got != 3*time.Second {
		t.Fatalf("renewEvery(9s)=%v", got)
	}
	if got := renewEvery(time.Microsecond); got != time.Millisecond {
		t.Fatalf("renewEvery floor=%v", got)
	}
}

func TestRedisLockLeaseOutlivesTTL(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ttl := 300 * time.Millisecond
	l, err := NewRedis(rdb, RedisOptions{Prefix: "test:lock:", TTL: ttl}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	key := Key("slow", time.Now().Format(time.RFC3339Nano))

	release, err := l.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	time.Sleep(3 * ttl)

	other, _ := NewRedis(rdb, RedisOptions{Prefix: "test:lock:", TTL: ttl}, nil)
	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := other.Lock(short, key); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("lease expired while held, err=%v", err)
	}

	release()
	release()
	if n, err := rdb.Exists(ctx, "test:lock:"+key).Result(); err != nil || n != 0 {
		t.Fatalf("key still present after release: n=%d err=%v", n, err)
	}
}
