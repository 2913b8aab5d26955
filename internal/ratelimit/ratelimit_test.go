package ratelimit

import (
	"errors"
	"testing"
)

func TestUnlimitedWhenUnconfigured(t *testing.T) {
	l := NewLimiter(Config{})
	for i := 0; i < 1000; i++ {
		if err := l.Allow(1); err != nil {
			t.Fatalf("call %d: %v, want unlimited", i, err)
		}
	}
}

func TestBurstExhaustion(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, BurstSize: 3})

	for i := 0; i < 3; i++ {
		if err := l.Allow(1); err != nil {
			t.Fatalf("call %d within burst: %v", i, err)
		}
	}
	if err := l.Allow(1); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("call past burst = %v, want ErrRateLimited", err)
	}
}

func TestPerChatIsolation(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, BurstSize: 1})

	if err := l.Allow(1); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow(1); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("chat 1 second call = %v, want ErrRateLimited", err)
	}
	// Another chat has its own bucket.
	if err := l.Allow(2); err != nil {
		t.Errorf("chat 2 first call = %v, want nil", err)
	}
}

func TestBurstDefaultsToRate(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 2})

	if err := l.Allow(1); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow(1); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow(1); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third call = %v, want ErrRateLimited", err)
	}
}
