package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestRateLimiter(delay time.Duration) *RateLimiter {
	log := logrus.NewEntry(logrus.New())
	log.Logger.SetLevel(logrus.DebugLevel)
	return NewRateLimiter(delay, log)
}

func TestWait_RespectsContextCancellation(t *testing.T) {
	rl := newTestRateLimiter(5 * time.Second)

	// First token is free; consume it so the next call must wait
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // pre-cancel

	start := time.Now()
	err := rl.Wait(ctx)
	elapsed := time.Since(start)

	if err == nil {
		t.Error("Wait with cancelled context returned nil error")
	}
	if elapsed > 100*time.Millisecond {
		t.Errorf("Wait with cancelled context took %v, expected <100ms", elapsed)
	}
}

func TestWait_SpacesConsecutiveRequests(t *testing.T) {
	rl := newTestRateLimiter(100 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	elapsed := time.Since(start)

	// Three requests need two full intervals between them
	if elapsed < 180*time.Millisecond {
		t.Errorf("Wait returned too quickly: %v, expected ~200ms", elapsed)
	}
	if elapsed > 600*time.Millisecond {
		t.Errorf("Wait took too long: %v, expected ~200ms", elapsed)
	}
}

func TestWait_NoDelayOnFirstRequest(t *testing.T) {
	rl := newTestRateLimiter(5 * time.Second)

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("Wait on first request took %v, expected instant return", elapsed)
	}
}

func TestWait_ZeroDelayDisablesPacing(t *testing.T) {
	rl := newTestRateLimiter(0)

	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero delay limiter took %v for 50 waits", elapsed)
	}
	if rl.Delay() != 0 {
		t.Errorf("Delay() = %v, want 0", rl.Delay())
	}
}
