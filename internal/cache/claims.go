package cache

import (
	"encoding/json"
	"time"

	"github.com/pbriand/verifai/internal/model"
)

// EvidenceEntry is the cached outcome of a completed evidence-gathering
// pass for one normalized claim.
type EvidenceEntry struct {
	Sources  []model.SourceRecord `json:"sources"`
	Answer   string               `json:"answer,omitempty"`
	CachedAt time.Time            `json:"cached_at"`
}

// ClaimCache stores enriched evidence keyed by normalized claim text.
// Entries expire after the configured TTL so stale evidence is not reused.
type ClaimCache struct {
	backend Cache
	ttl     time.Duration
}

// NewClaimCache wraps a Cache backend with claim-aware serialization
func NewClaimCache(backend Cache, ttl time.Duration) *ClaimCache {
	return &ClaimCache{backend: backend, ttl: ttl}
}

// Lookup returns the cached evidence for a normalized claim, if present.
// Corrupt entries are evicted and reported as misses.
func (c *ClaimCache) Lookup(normalized string) (*EvidenceEntry, bool) {
	key := CacheKey(normalized)
	data, found := c.backend.Get(key)
	if !found {
		return nil, false
	}
	var entry EvidenceEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.backend.Delete(key)
		return nil, false
	}
	return &entry, true
}

// Store caches the evidence gathered for a normalized claim
func (c *ClaimCache) Store(normalized string, sources []model.SourceRecord, answer string) error {
	entry := EvidenceEntry{
		Sources:  sources,
		Answer:   answer,
		CachedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.backend.Set(CacheKey(normalized), data, c.ttl)
}

// Invalidate drops the cached evidence for a normalized claim
func (c *ClaimCache) Invalidate(normalized string) error {
	return c.backend.Delete(CacheKey(normalized))
}
