package worker

import (
	"context"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	l := NewLimiter(2.0, 5)
	if l.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", l.defaultBurst)
	}

	l2 := NewLimiter(1.0, 0)
	if l2.defaultBurst != 4 {
		t.Errorf("expected default burst 4 for 0 input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Allow(t *testing.T) {
	// High rate, everything should be allowed
	l := NewLimiter(1000, 1000)

	for i := 0; i < 10; i++ {
		if !l.Allow("https://api.example.com/data") {
			t.Errorf("request %d should be allowed", i)
		}
	}
}

func TestLimiter_AllowExhaustsBurst(t *testing.T) {
	// Tiny rate with burst of 2: third immediate request must be denied
	l := NewLimiter(0.001, 2)

	if !l.Allow("https://api.example.com/a") {
		t.Error("first request should be allowed")
	}
	if !l.Allow("https://api.example.com/b") {
		t.Error("second request should be allowed")
	}
	if l.Allow("https://api.example.com/c") {
		t.Error("third request should be denied after burst is exhausted")
	}
}

func TestLimiter_PerHostIsolation(t *testing.T) {
	l := NewLimiter(0.001, 1)

	if !l.Allow("https://one.example.com/") {
		t.Error("first host should be allowed")
	}
	// A different host has its own bucket
	if !l.Allow("https://two.example.com/") {
		t.Error("second host should have its own budget")
	}
	// But the first host is now exhausted
	if l.Allow("https://one.example.com/") {
		t.Error("first host should be exhausted")
	}
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(1000, 1000)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := l.Wait(ctx, "https://api.example.com/data"); err != nil {
		t.Errorf("Wait failed: %v", err)
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	l := NewLimiter(0.001, 1)

	// Drain the burst
	if !l.Allow("https://api.example.com/") {
		t.Fatal("expected first request allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, "https://api.example.com/")
	if err == nil {
		t.Error("expected context error while waiting on exhausted limiter")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	l := NewLimiter(0.001, 1)

	l.SetHostRate("fast.example.com", 1000, 1000)

	for i := 0; i < 5; i++ {
		if !l.Allow("https://fast.example.com/data") {
			t.Errorf("request %d to overridden host should be allowed", i)
		}
	}
}

func TestLimiter_SetHostRateDefaultsBurst(t *testing.T) {
	l := NewLimiter(1.0, 7)

	l.SetHostRate("api.example.com", 10, 0)

	l.mu.RLock()
	limiter := l.limiters["api.example.com"]
	l.mu.RUnlock()

	if limiter == nil {
		t.Fatal("expected limiter to be registered")
	}
	if limiter.Burst() != 7 {
		t.Errorf("expected fallback to default burst 7, got %d", limiter.Burst())
	}
}

func TestExtractHost(t *testing.T) {
	tests := []struct {
		rawURL string
		want   string
	}{
		{"https://api.openweathermap.org/data/2.5/weather", "api.openweathermap.org"},
		{"http://localhost:8080/path", "localhost:8080"},
		{"https://example.com", "example.com"},
	}

	for _, tt := range tests {
		got, err := extractHost(tt.rawURL)
		if err != nil {
			t.Errorf("extractHost(%q) failed: %v", tt.rawURL, err)
			continue
		}
		if got != tt.want {
			t.Errorf("extractHost(%q) = %q, want %q", tt.rawURL, got, tt.want)
		}
	}
}

func TestExtractHost_Invalid(t *testing.T) {
	if _, err := extractHost("://not a url"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
