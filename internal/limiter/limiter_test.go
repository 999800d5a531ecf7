package limiter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	l := NewLimiter(time.Second, 30*time.Second)
	if l.interval != time.Second {
		t.Errorf("expected interval 1s, got %v", l.interval)
	}

	l2 := NewLimiter(-1, -1)
	if l2.interval != time.Second {
		t.Errorf("expected default interval for negative input, got %v", l2.interval)
	}
	if l2.maxWait != 30*time.Second {
		t.Errorf("expected default max wait for negative input, got %v", l2.maxWait)
	}
}

func TestLimiter_Acquire(t *testing.T) {
	l := NewLimiter(time.Millisecond, time.Second)
	ctx := context.Background()

	if err := l.Acquire(ctx, "tavily"); err != nil {
		t.Errorf("acquire failed: %v", err)
	}

	// Different provider has its own bucket
	if err := l.Acquire(ctx, "openai"); err != nil {
		t.Errorf("acquire failed: %v", err)
	}
}

func TestLimiter_MinInterval(t *testing.T) {
	l := NewLimiter(50*time.Millisecond, time.Second)
	ctx := context.Background()

	if err := l.Acquire(ctx, "tavily"); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	start := time.Now()
	if err := l.Acquire(ctx, "tavily"); err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected second acquire to wait ~50ms, waited %v", elapsed)
	}
}

func TestLimiter_WaitExceeded(t *testing.T) {
	l := NewLimiter(time.Minute, 20*time.Millisecond)
	ctx := context.Background()

	// First call drains the token; the next would wait a minute.
	if err := l.Acquire(ctx, "tavily"); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	err := l.Acquire(ctx, "tavily")
	if !errors.Is(err, ErrWaitExceeded) {
		t.Errorf("expected ErrWaitExceeded, got %v", err)
	}
}

func TestLimiter_CallerCancellation(t *testing.T) {
	l := NewLimiter(time.Minute, time.Minute)

	if err := l.Acquire(context.Background(), "tavily"); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Acquire(ctx, "tavily")
	if errors.Is(err, ErrWaitExceeded) {
		t.Error("caller cancellation should not be reported as a limit breach")
	}
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(time.Minute, time.Minute)

	if !l.Allow("tavily") {
		t.Error("first call should be allowed")
	}
	if l.Allow("tavily") {
		t.Error("expected allow to fail (token consumed)")
	}

	// Other provider still has its token
	if !l.Allow("openai") {
		t.Error("expected allow for other provider")
	}
}

func TestLimiter_SetProviderRate(t *testing.T) {
	l := NewLimiter(time.Minute, time.Minute)

	l.SetProviderRate("burst", 10*time.Millisecond, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("burst") {
			t.Errorf("call %d should be within burst", i)
		}
	}
	if l.Allow("burst") {
		t.Error("expected allow to fail after burst exhausted")
	}
}

func TestLimiter_ConcurrentGetLimiter(t *testing.T) {
	l := NewLimiter(time.Millisecond, time.Second)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			l.Allow("shared")
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	l.mu.RLock()
	n := len(l.limiters)
	l.mu.RUnlock()
	if n != 1 {
		t.Errorf("expected a single bucket for the shared provider, got %d", n)
	}
}
