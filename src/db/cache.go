package db

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto"

	"ledger-server/src/ledger"
)

// SummaryCache keeps computed view summaries per owner. Keys are tracked per
// owner so that a change to one ledger clears only that owner's entries.
type SummaryCache struct {
	cache *ristretto.Cache
	keys  struct {
		sync.RWMutex
		m map[int64]map[string]struct{}
	}
}

func NewSummaryCache(maxEntries int64) (*SummaryCache, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10, // number of keys to track frequency of
		MaxCost:     maxEntries,
		BufferItems: 64, // number of keys per Get buffer

		// Each entry costs 1 so MaxCost counts entries.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize summary cache: %w", err)
	}
	c := &SummaryCache{cache: cache}
	c.keys.m = make(map[int64]map[string]struct{})
	return c, nil
}

func summaryKey(owner int64, view ledger.Key, version uint64) string {
	return fmt.Sprintf("summary:%d:%d:%s", owner, version, view)
}

// Get returns the summary stored for this exact state of the owner's ledger.
func (c *SummaryCache) Get(owner int64, view ledger.Key, version uint64) (ledger.Summary, bool) {
	v, ok := c.cache.Get(summaryKey(owner, view, version))
	if !ok {
		return ledger.Summary{}, false
	}
	s, ok := v.(ledger.Summary)
	return s, ok
}

func (c *SummaryCache) Set(owner int64, view ledger.Key, version uint64, s ledger.Summary) {
	key := summaryKey(owner, view, version)
	c.keys.Lock()
	if c.keys.m[owner] == nil {
		c.keys.m[owner] = make(map[string]struct{})
	}
	c.keys.m[owner][key] = struct{}{}
	c.keys.Unlock()
	c.cache.Set(key, s, 1)
}

// ClearOwner drops every cached summary of owner.
func (c *SummaryCache) ClearOwner(owner int64) {
	c.keys.Lock()
	for key := range c.keys.m[owner] {
		c.cache.Del(key)
	}
	delete(c.keys.m, owner)
	c.keys.Unlock()
}

func (c *SummaryCache) Clear() {
	c.keys.Lock()
	c.cache.Clear()
	c.keys.m = make(map[int64]map[string]struct{})
	c.keys.Unlock()
}

// Wait blocks until pending writes are visible to Get.
func (c *SummaryCache) Wait() {
	c.cache.Wait()
}

func (c *SummaryCache) Close() {
	c.cache.Close()
}
