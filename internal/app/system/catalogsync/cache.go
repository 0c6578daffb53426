package catalogsync

import (
	"github.com/dalemusser/tasktracker/internal/domain/models"
)

// Change lists what a snapshot changed relative to the cache.
type Change struct {
	Added   []models.AvailableTask
	Removed []models.AvailableTask
	Changed []models.AvailableTask
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// Cache is one subscriber's view of the catalog. It is not safe for
// concurrent use; each subscriber owns its own.
type Cache struct {
	seq   uint64
	items []models.AvailableTask
	byKey map[string]models.AvailableTask
}

// Seq is the sequence number of the last applied snapshot.
func (c *Cache) Seq() uint64 { return c.seq }

// Items returns the cached catalog in snapshot order.
func (c *Cache) Items() []models.AvailableTask {
	out := make([]models.AvailableTask, len(c.items))
	copy(out, c.items)
	return out
}

// Reconcile replaces the cache with s and reports the difference, keyed by
// task id. A snapshot not newer than the last applied one is ignored and
// applied is false.
func (c *Cache) Reconcile(s Snapshot) (ch Change, applied bool) {
	if c.byKey != nil && s.Seq <= c.seq {
		return Change{}, false
	}

	next := make(map[string]models.AvailableTask, len(s.Tasks))
	for _, t := range s.Tasks {
		k := t.ID.Hex()
		next[k] = t
		old, ok := c.byKey[k]
		switch {
		case !ok:
			ch.Added = append(ch.Added, t)
		case old.Title != t.Title || !old.CreatedAt.Equal(t.CreatedAt):
			ch.Changed = append(ch.Changed, t)
		}
	}
	for _, t := range c.items {
		if _, ok := next[t.ID.Hex()]; !ok {
			ch.Removed = append(ch.Removed, t)
		}
	}

	c.seq = s.Seq
	c.byKey = next
	c.items = append(c.items[:0:0], s.Tasks...)
	return ch, true
}
