package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyed_Exclusive(t *testing.T) {
	k := NewKeyed()

	var (
		inside int32
		peak   int32
		wg     sync.WaitGroup
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock, err := k.Lock(context.Background(), "TRX1")
			if err != nil {
				t.Error(err)
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&peak)
				if n <= m || atomic.CompareAndSwapInt32(&peak, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if peak != 1 {
		t.Errorf("%d holders at once, want 1", peak)
	}
	if k.Len() != 0 {
		t.Errorf("%d keys left after release", k.Len())
	}
}

func TestKeyed_IndependentKeys(t *testing.T) {
	k := NewKeyed()

	unlock, err := k.Lock(context.Background(), "TRX1")
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	other, err := k.Lock(ctx, "TRX2")
	if err != nil {
		t.Fatalf("unrelated key blocked: %v", err)
	}
	other()
}

func TestKeyed_ContextCancel(t *testing.T) {
	k := NewKeyed()

	unlock, err := k.Lock(context.Background(), "TRX1")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := k.Lock(ctx, "TRX1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	unlock()

	if k.Len() != 0 {
		t.Errorf("%d keys left after release", k.Len())
	}
}
