package series

import (
	"sync/atomic"
	"time"

	"github.com/advtools/calculo-engine/pkg/correction"
	"github.com/advtools/calculo-engine/pkg/indices"
)

// cachedLatest is one memoized latest-value observation.
type cachedLatest struct {
	observation correction.Observation
	source      string
	storedAt    time.Time
}

// latestCache memoizes the most recent observation per index for a bounded
// window. One atomic slot exists per catalog code; entries are replaced
// wholesale, never mutated in place, so concurrent readers and writers need
// no lock. The cache is advisory: losing an entry costs a refetch, never
// correctness.
type latestCache struct {
	ttl   time.Duration
	slots map[indices.Code]*atomic.Pointer[cachedLatest]
}

// newLatestCache builds the fixed slot map from the catalog. The map itself
// is never written after construction.
func newLatestCache(ttl time.Duration) *latestCache {
	slots := make(map[indices.Code]*atomic.Pointer[cachedLatest], len(indices.All()))
	for _, def := range indices.All() {
		slots[def.Code] = &atomic.Pointer[cachedLatest]{}
	}
	return &latestCache{ttl: ttl, slots: slots}
}

func (c *latestCache) get(code indices.Code, now time.Time) (cachedLatest, bool) {
	if c.ttl <= 0 {
		return cachedLatest{}, false
	}
	slot, ok := c.slots[code]
	if !ok {
		return cachedLatest{}, false
	}
	entry := slot.Load()
	if entry == nil || now.Sub(entry.storedAt) >= c.ttl {
		return cachedLatest{}, false
	}
	return *entry, true
}

func (c *latestCache) put(code indices.Code, entry cachedLatest) {
	if slot, ok := c.slots[code]; ok {
		slot.Store(&entry)
	}
}
