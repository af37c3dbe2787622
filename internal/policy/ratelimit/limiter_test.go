package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_Wait(t *testing.T) {
	// 600 per minute = one token every 100ms.
	l := New(Config{DefaultPerMinute: 600, Burst: 1})
	ctx := context.Background()

	// Consume initial token
	if err := l.Wait(ctx, "product"); err != nil {
		t.Fatal(err)
	}

	// Next one should wait ~100ms
	start := time.Now()
	if err := l.Wait(ctx, "product"); err != nil {
		t.Fatal(err)
	}
	if dur := time.Since(start); dur < 80*time.Millisecond {
		t.Errorf("expected wait ~100ms, got %v", dur)
	}
}

func TestLimiter_EndpointsAreIndependent(t *testing.T) {
	l := New(Config{
		DefaultPerMinute: 60,
		Endpoints:        map[string]int{"search": 1},
	})
	ctx := context.Background()

	if err := l.Wait(ctx, "search"); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := l.Wait(ctx, "product"); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Errorf("product endpoint blocked by search")
	}
}

func TestLimiter_ContextCancel(t *testing.T) {
	l := New(Config{Endpoints: map[string]int{"search": 1}})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "search"); err != nil {
		t.Fatal(err)
	}
	if err := l.Wait(ctx, "search"); err == nil {
		t.Fatal("expected wait to fail once the context expires")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l := New(Config{})
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := l.Wait(ctx, "product"); err != nil {
			t.Fatal(err)
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("unlimited limiter should not block")
	}
}
