package redis

import (
	"context"
	"fmt"
	"time"
)

// Marker implements one-shot flags with SET NX.
// With Redis disabled every Mark succeeds, so callers behave as single-process.
type Marker struct {
	client *Client
	prefix string
}

// NewMarker creates a marker helper under prefix
func NewMarker(client *Client, prefix string) *Marker {
	return &Marker{client: client, prefix: prefix}
}

// Mark sets key if absent and reports whether this call took it
func (m *Marker) Mark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !m.client.Enabled() {
		return true, nil
	}

	ok, err := m.client.Redis().SetNX(ctx, m.fullKey(key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("marker set failed: %w", err)
	}
	return ok, nil
}

// Release deletes the marker so a failed dispatch can be retried
func (m *Marker) Release(ctx context.Context, key string) error {
	if !m.client.Enabled() {
		return nil
	}
	return m.client.Redis().Del(ctx, m.fullKey(key)).Err()
}

func (m *Marker) fullKey(key string) string {
	return fmt.Sprintf("%s:marker:%s", m.prefix, key)
}
