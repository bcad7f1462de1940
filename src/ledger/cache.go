package ledger

import (
	"sort"

	"ledger-server/src/models"
)

// Key identifies a partition. Current is the unarchived partition; every
// other value is an archive name.
type Key string

const Current Key = ""

func KeyOf(t models.Transaction) Key {
	return Key(t.Label())
}

// Label converts a key into the nullable archive label used by the store.
func (k Key) Label() *string {
	if k == Current {
		return nil
	}
	s := string(k)
	return &s
}

// Cache partitions an owner's transactions by archive key. Each partition is
// ordered newest first. A Cache is not safe for concurrent use; Session
// serialises access to it.
type Cache struct {
	partitions map[Key][]models.Transaction
}

func NewCache() *Cache {
	return &Cache{partitions: make(map[Key][]models.Transaction)}
}

// Replace discards all cached state and rebuilds the partitions from records.
func (c *Cache) Replace(records []models.Transaction) {
	c.partitions = make(map[Key][]models.Transaction)
	c.partitions[Current] = nil
	for _, t := range records {
		k := KeyOf(t)
		c.partitions[k] = append(c.partitions[k], t)
	}
	for k := range c.partitions {
		p := c.partitions[k]
		sort.SliceStable(p, func(i, j int) bool { return p[i].CreatedAt.After(p[j].CreatedAt) })
	}
}

func (c *Cache) Reset() {
	c.partitions = make(map[Key][]models.Transaction)
}

// Partition returns a copy of the partition for k; nil when k is unknown.
func (c *Cache) Partition(k Key) []models.Transaction {
	p, ok := c.partitions[k]
	if !ok {
		return nil
	}
	out := make([]models.Transaction, len(p))
	copy(out, p)
	return out
}

func (c *Cache) Has(k Key) bool {
	_, ok := c.partitions[k]
	return ok
}

// Keys returns every known partition key, Current first then archive names
// in lexical order.
func (c *Cache) Keys() []Key {
	keys := make([]Key, 0, len(c.partitions))
	for k := range c.partitions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ArchiveNames is the set of non-current keys, sorted.
func (c *Cache) ArchiveNames() []string {
	names := []string{}
	for _, k := range c.Keys() {
		if k != Current {
			names = append(names, string(k))
		}
	}
	return names
}

// Len counts cached transactions across all partitions.
func (c *Cache) Len() int {
	n := 0
	for _, p := range c.partitions {
		n += len(p)
	}
	return n
}

// Prepend puts t at the front of its partition, creating the partition if
// needed. The caller must have removed any previous copy of t.
func (c *Cache) Prepend(t models.Transaction) {
	k := KeyOf(t)
	c.partitions[k] = prepend(c.partitions[k], t)
}

// Place inserts t into its partition keeping newest-first order.
func (c *Cache) Place(t models.Transaction) {
	k := KeyOf(t)
	c.partitions[k] = place(c.partitions[k], t)
}

// Swap replaces the copy of t held in t's own partition, leaving its position
// untouched. It reports false when that partition does not hold t.
func (c *Cache) Swap(t models.Transaction) bool {
	k := KeyOf(t)
	i := indexOf(c.partitions[k], t.ID)
	if i < 0 {
		return false
	}
	for other := range c.partitions {
		if other != k {
			c.drop(other, t.ID)
		}
	}
	c.partitions[k][i] = t
	return true
}

// Remove deletes id from every partition. It returns the key it was last
// found under and whether it was found at all.
func (c *Cache) Remove(id int64) (Key, bool) {
	var (
		found bool
		at    Key
	)
	for k := range c.partitions {
		if c.drop(k, id) {
			found, at = true, k
		}
	}
	return at, found
}

// drop removes id from partition k. Archive partitions left empty are
// forgotten so that ArchiveNames only lists labels still in use.
func (c *Cache) drop(k Key, id int64) bool {
	p := c.partitions[k]
	i := indexOf(p, id)
	if i < 0 {
		return false
	}
	p = append(p[:i:i], p[i+1:]...)
	if len(p) == 0 && k != Current {
		delete(c.partitions, k)
		return true
	}
	c.partitions[k] = p
	return true
}

func indexOf(list []models.Transaction, id int64) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func prepend(list []models.Transaction, t models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(list)+1)
	out = append(out, t)
	return append(out, list...)
}

// place inserts t before the first entry strictly older than it.
func place(list []models.Transaction, t models.Transaction) []models.Transaction {
	i := sort.Search(len(list), func(i int) bool { return list[i].CreatedAt.Before(t.CreatedAt) })
	out := make([]models.Transaction, 0, len(list)+1)
	out = append(out, list[:i]...)
	out = append(out, t)
	return append(out, list[i:]...)
}

func without(list []models.Transaction, id int64) []models.Transaction {
	i := indexOf(list, id)
	if i < 0 {
		return list
	}
	out := make([]models.Transaction, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}
