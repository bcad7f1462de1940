package ledger

import (
	"fmt"

	"ledger-server/src/models"
)

// Projector derives the displayed list from a Cache. It owns the active view
// key, and every patch consults that key at the time it is applied.
type Projector struct {
	cache     *Cache
	active    Key
	displayed []models.Transaction
}

func NewProjector(cache *Cache) *Projector {
	return &Projector{cache: cache}
}

// Load replaces the cache with records and shows the current partition.
func (p *Projector) Load(records []models.Transaction) {
	p.cache.Replace(records)
	p.active = Current
	p.displayed = p.cache.Partition(Current)
}

// Reset empties the cache and the displayed list.
func (p *Projector) Reset() {
	p.cache.Reset()
	p.active = Current
	p.displayed = nil
}

// SelectView switches the displayed list to the cached partition for k. An
// unknown key yields an empty list.
func (p *Projector) SelectView(k Key) []models.Transaction {
	p.active = k
	p.displayed = p.cache.Partition(k)
	return p.Displayed()
}

func (p *Projector) Active() Key { return p.active }

func (p *Projector) Displayed() []models.Transaction {
	out := make([]models.Transaction, len(p.displayed))
	copy(out, p.displayed)
	return out
}

func (p *Projector) ApplyInsert(t models.Transaction) {
	p.cache.Remove(t.ID)
	p.displayed = without(p.displayed, t.ID)

	p.cache.Prepend(t)
	if KeyOf(t) == p.active {
		p.displayed = prepend(p.displayed, t)
	}
}

// ApplyUpdate reflects a new version of a record. A record that stays in its
// partition keeps its position; one that moves is placed by creation time in
// the new partition. The displayed list follows the same rule as inserts.
func (p *Projector) ApplyUpdate(t models.Transaction) {
	k := KeyOf(t)
	if p.cache.Swap(t) {
		if i := indexOf(p.displayed, t.ID); i >= 0 && k == p.active {
			p.displayed[i] = t
			return
		}
		p.displayed = without(p.displayed, t.ID)
		if k == p.active {
			p.displayed = place(p.displayed, t)
		}
		return
	}

	p.cache.Remove(t.ID)
	p.displayed = without(p.displayed, t.ID)
	p.cache.Place(t)
	if k == p.active {
		p.displayed = place(p.displayed, t)
	}
}

func (p *Projector) ApplyDelete(id int64) {
	p.cache.Remove(id)
	p.displayed = without(p.displayed, id)
}

// Apply dispatches a change-feed event.
func (p *Projector) Apply(ev models.ChangeEvent) error {
	switch ev.Op {
	case models.OpInsert, models.OpUpdate:
		if ev.Record == nil {
			return fmt.Errorf("%s event for id %d carries no record", ev.Op, ev.ID)
		}
		if ev.Op == models.OpInsert {
			p.ApplyInsert(*ev.Record)
		} else {
			p.ApplyUpdate(*ev.Record)
		}
	case models.OpDelete:
		p.ApplyDelete(ev.ID)
	default:
		return fmt.Errorf("unknown change op %q", ev.Op)
	}
	return nil
}
