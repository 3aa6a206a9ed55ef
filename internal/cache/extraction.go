package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// extractionVersion is bumped whenever stages before classification change
// their output, so stale entries are never reused.
const extractionVersion = "v1"

// ExtractionCache stores the normalized, unclassified items of a document
// keyed by its content checksum and the extraction settings.
type ExtractionCache struct {
	client Client
	ttl    time.Duration
}

// NewExtractionCache wraps client. A zero ttl keeps entries until evicted.
func NewExtractionCache(client Client, ttl time.Duration) *ExtractionCache {
	return &ExtractionCache{client: client, ttl: ttl}
}

// ContentChecksum returns the hex SHA-256 of data.
func ContentChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ExtractionKey builds the cache key for a document checksum under a given
// settings fingerprint.
func ExtractionKey(checksum, fingerprint string) string {
	return CacheKey("extract", extractionVersion, fingerprint, checksum)
}

// Get returns cached items. It returns ErrCacheMiss when nothing is stored.
func (c *ExtractionCache) Get(ctx context.Context, checksum, fingerprint string) ([]pricing.LineItem, error) {
	data, err := c.client.Get(ctx, ExtractionKey(checksum, fingerprint))
	if err != nil {
		return nil, err
	}

	var items []pricing.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		// A corrupt entry is treated as absent.
		_ = c.client.Delete(ctx, ExtractionKey(checksum, fingerprint))
		return nil, ErrCacheMiss
	}
	return items, nil
}

// Put stores items for checksum.
func (c *ExtractionCache) Put(ctx context.Context, checksum, fingerprint string, items []pricing.LineItem) error {
	if items == nil {
		items = []pricing.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal extraction: %w", err)
	}
	return c.client.Set(ctx, ExtractionKey(checksum, fingerprint), data, c.ttl)
}

// Purge drops every cached extraction and reports how many were dropped.
func (c *ExtractionCache) Purge(ctx context.Context) (int, error) {
	return c.client.DeleteByPrefix(ctx, CacheKey("extract", ""))
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
