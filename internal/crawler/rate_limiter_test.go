package crawler

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()

	// First request should be immediate
	if err := limiter.Wait(ctx); err != nil {
		t.Errorf("First request failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("First wait should not block, elapsed time: %v", elapsed)
	}

	// Second request should wait
	if err := limiter.Wait(ctx); err != nil {
		t.Errorf("Second request failed: %v", err)
	}

	elapsed := time.Since(start)
	if elapsed < 90*time.Millisecond {
		t.Errorf("Rate limiting not working, elapsed time: %v", elapsed)
	}
}

func TestRateLimiterGlobalAcrossHosts(t *testing.T) {
	limiter := NewRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	// Pacing is shared by every fetch of the run, whatever the host.
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait %d failed: %v", i, err)
		}
	}

	if elapsed := time.Since(start); elapsed < 180*time.Millisecond {
		t.Errorf("Expected at least two delays, elapsed time: %v", elapsed)
	}
}

func TestRateLimiterZeroDelay(t *testing.T) {
	limiter := NewRateLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait %d failed: %v", i, err)
		}
	}

	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Zero delay should not block, elapsed time: %v", elapsed)
	}
	if limiter.Delay() != 0 {
		t.Errorf("Expected zero delay, got %v", limiter.Delay())
	}
}

func TestRateLimiterContextCancellation(t *testing.T) {
	limiter := NewRateLimiter(500 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	// First request to establish timing
	if err := limiter.Wait(ctx); err != nil {
		t.Errorf("First request failed: %v", err)
	}

	// Cancel context before second request
	cancel()

	err := limiter.Wait(ctx)
	if err == nil {
		t.Errorf("Expected context cancellation error, got nil")
	}
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
