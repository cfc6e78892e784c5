// Package dedupe records processed event IDs in Redis so cascade handlers can
// short-circuit redelivered events. The bus guarantees at-least-once
// delivery; handlers stay idempotent on their own, the marker just keeps a
// redelivered event from re-running the whole local transaction.
package dedupe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 7 * 24 * time.Hour

// Marker tracks processed event IDs. A nil client disables tracking: every
// check reports unseen and handlers fall back on their own idempotence.
type Marker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewMarker(client redis.UniversalClient, prefix string) *Marker {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "skillswap:processed_events"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &Marker{
		client: client,
		prefix: trimmedPrefix,
		ttl:    defaultTTL,
	}
}

// Seen reports whether the event ID has already been marked processed.
// Errors degrade to unseen so a Redis outage never blocks the cascade.
func (m *Marker) Seen(ctx context.Context, eventID string) bool {
	if m == nil || m.client == nil || strings.TrimSpace(eventID) == "" {
		return false
	}
	n, err := m.client.Exists(ctx, m.key(eventID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// MarkProcessed records the event ID. Failures are returned but callers
// treat them as advisory: the handler's local effect already committed.
func (m *Marker) MarkProcessed(ctx context.Context, eventID string) error {
	if m == nil || m.client == nil || strings.TrimSpace(eventID) == "" {
		return nil
	}
	return m.client.Set(ctx, m.key(eventID), 1, m.ttl).Err()
}

func (m *Marker) key(eventID string) string {
	return fmt.Sprintf("%s:%s", m.prefix, eventID)
}
