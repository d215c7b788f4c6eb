package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// unreachable points at a port nothing listens on
func unreachable(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("not a url"); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestNewClientUnreachable(t *testing.T) {
	if _, err := NewClient("redis://127.0.0.1:1/0"); err == nil {
		t.Fatal("expected error when redis is down")
	}
}

func TestViewCacheDegradesWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	c := NewViewCache[[]string](unreachable(t), "test:", time.Minute, zap.NewNop().Sugar())

	v := []string{"a"}
	c.Set(ctx, "all", &v)
	if got, ok := c.Get(ctx, "all"); ok || got != nil {
		t.Errorf("Get = %v, %v; want miss", got, ok)
	}
	c.Delete(ctx, "all")
}

func TestWindowCounterReturnsError(t *testing.T) {
	counter := NewWindowCounter(unreachable(t), time.Minute)
	if _, err := counter.Incr(context.Background(), "10.0.0.1"); err == nil {
		t.Fatal("expected error from unreachable redis")
	}
}
