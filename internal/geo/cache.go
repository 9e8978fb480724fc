package geo

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fareone/bookings/internal/observability"
	"github.com/fareone/bookings/pkg/logger"
)

// CachedSuggester wraps a Suggester with a Redis cache keyed on the
// normalized query. The geocoding provider is metered per request, and the
// same airport and street names come up constantly, so even a short TTL pays
// off. Cache failures fail open to the underlying provider.
type CachedSuggester struct {
	next   Suggester
	client *redis.Client
	ttl    time.Duration
}

func NewCachedSuggester(next Suggester, client *redis.Client, ttl time.Duration) *CachedSuggester {
	return &CachedSuggester{next: next, client: client, ttl: ttl}
}

func (c *CachedSuggester) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	key := cacheKey(query)

	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		var cached []Suggestion
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			observability.SuggestCacheHits.WithLabelValues("hit").Inc()
			return cached, nil
		}
	}
	observability.SuggestCacheHits.WithLabelValues("miss").Inc()

	list, err := c.next.Suggest(ctx, query)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(list); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			logger.DebugContext(ctx, "Failed to cache suggestions", "error", err)
		}
	}

	return list, nil
}

func cacheKey(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("suggest:%x", sum[:8])
}

var _ Suggester = (*CachedSuggester)(nil)
