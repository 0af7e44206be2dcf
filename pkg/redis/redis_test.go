package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()

	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	client := disabledClient(t)
	limiter := NewRateLimiter(client, "test")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), PriceAPIRateLimit)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != PriceAPIRateLimit.Limit {
		t.Errorf("Expected remaining = %d, got %d", PriceAPIRateLimit.Limit, remaining)
	}
}

func TestCache_Disabled(t *testing.T) {
	client := disabledClient(t)
	cache := NewCache(client, "test")

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}
}

func TestLease_LocalExclusivity(t *testing.T) {
	client := disabledClient(t)
	lease := NewLease(client, "test")

	ctx := context.Background()

	release, err := lease.Acquire(ctx, "scan:momentum", time.Minute)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Second acquire on the same key must fail with contention
	_, err = lease.Acquire(ctx, "scan:momentum", time.Minute)
	if !errors.Is(err, contracts.ErrLockContention) {
		t.Errorf("Expected ErrLockContention, got %v", err)
	}

	// Different key is independent
	release2, err := lease.Acquire(ctx, "scan:fundamental", time.Minute)
	if err != nil {
		t.Fatalf("Acquire() on other key error = %v", err)
	}
	release2()

	// After release the key is free again
	release()
	release3, err := lease.Acquire(ctx, "scan:momentum", time.Minute)
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	release3()
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "PriceKey",
			fn:       func() string { return PriceKey("2330", "2026-08-21") },
			expected: "price:2330:2026-08-21",
		},
		{
			name:     "FundamentalKey",
			fn:       func() string { return FundamentalKey("2330") },
			expected: "fundamental:2330",
		},
		{
			name:     "UniverseKey",
			fn:       func() string { return UniverseKey("tw") },
			expected: "universe:tw",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
