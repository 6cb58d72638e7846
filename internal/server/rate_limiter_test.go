package server

import (
	"testing"
	"time"
)

func TestRateLimiterExhaustsBurst(t *testing.T) {
	rl := newRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !rl.allow() {
			t.Fatalf("Expected message %d within burst to be allowed", i+1)
		}
	}
	if rl.allow() {
		t.Error("Expected message beyond burst to be rejected")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := newRateLimiter(2, 20*time.Millisecond)

	rl.allow()
	rl.allow()
	if rl.allow() {
		t.Fatal("Expected empty bucket to reject")
	}

	time.Sleep(30 * time.Millisecond)
	if !rl.allow() {
		t.Error("Expected token to refill after the interval")
	}
}

func TestRateLimiterSanitizesArguments(t *testing.T) {
	rl := newRateLimiter(0, 0)
	if !rl.allow() {
		t.Error("Expected limiter with sanitized capacity to allow one message")
	}
}
