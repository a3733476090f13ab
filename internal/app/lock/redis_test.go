package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func TestRedis_Lock(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	r := NewRedis(client, time.Second, WithRetryInterval(5*time.Millisecond), WithKeyPrefix("ppobmart:test:"))
	if err := r.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}

	unlock, err := r.Lock(context.Background(), "TRX1")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := r.Lock(ctx, "TRX1"); err == nil {
		t.Fatal("second holder acquired a held key")
	}

	unlock()

	again, err := r.Lock(context.Background(), "TRX1")
	if err != nil {
		t.Fatalf("key not released: %v", err)
	}
	again()
}
