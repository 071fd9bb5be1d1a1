package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wonny/carwatch/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), &config.Config{
		Redis: config.RedisConfig{Enabled: false},
	})
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
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "carwatch")
	ctx := context.Background()

	if err := cache.Set(ctx, LatestRunKey(), map[string]int{"total": 3}, TTLDaily); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var result map[string]int
	found, err := cache.Get(ctx, LatestRunKey(), &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}
}

func TestMarker_Disabled(t *testing.T) {
	marker := NewMarker(disabledClient(t), "carwatch")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := marker.Mark(ctx, NotifyKey("20240102"), TTLWeek)
		if err != nil {
			t.Fatalf("Mark() error = %v", err)
		}
		if !ok {
			t.Error("Expected every mark to succeed when Redis disabled")
		}
	}
}

func TestMarker_Live(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if testing.Short() || addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping integration test")
	}

	client := NewFromRedis(goredis.NewClient(&goredis.Options{Addr: addr}))
	defer client.Close()

	marker := NewMarker(client, "carwatch-test")
	ctx := context.Background()
	key := NotifyKey(time.Now().Format("20060102150405"))
	defer marker.Release(ctx, key)

	first, err := marker.Mark(ctx, key, time.Minute)
	if err != nil || !first {
		t.Fatalf("Expected first mark to succeed, got %v, %v", first, err)
	}
	second, err := marker.Mark(ctx, key, time.Minute)
	if err != nil || second {
		t.Fatalf("Expected second mark to be refused, got %v, %v", second, err)
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"LatestRunKey", LatestRunKey(), "runs:latest"},
		{"NotifyKey", NotifyKey("20240102"), "notify:20240102"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}
