package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestInMemoryExclusive(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "register:alice", time.Minute)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, "register:alice", time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("second Acquire = %v, want ErrHeld", err)
	}
	if _, err := l.Acquire(ctx, "register:bob", time.Minute); err != nil {
		t.Fatalf("other key should be free: %v", err)
	}

	release()
	release()

	if _, err := l.Acquire(ctx, "register:alice", time.Minute); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestInMemoryExpiry(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	staleRelease, err := l.Acquire(ctx, "k", time.Millisecond)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := l.Acquire(ctx, "k", time.Minute); err != nil {
		t.Fatalf("expired lock should be retakable: %v", err)
	}
	// The stale holder must not free the new holder's lock.
	staleRelease()
	if _, err := l.Acquire(ctx, "k", time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("Acquire = %v, want ErrHeld", err)
	}
}

func TestInMemoryConcurrent(t *testing.T) {
	l := NewInMemory()
	var (
		wg  sync.WaitGroup
		got atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Acquire(context.Background(), "same", time.Minute); err == nil {
				got.Add(1)
			}
		}()
	}
	wg.Wait()
	if got.Load() != 1 {
		t.Errorf("expected exactly one holder, got %d", got.Load())
	}
}

func TestInMemoryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewInMemory().Acquire(ctx, "k", time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire = %v, want context.Canceled", err)
	}
}
