package pipeline

import "sync"

// cache keeps the most recently generated terrains, evicting the oldest.
type cache struct {
	mu    sync.RWMutex
	limit int
	items map[string]*Terrain
	order []string
}

func newCache(limit int) *cache {
	return &cache{
		limit: max(1, limit),
		items: make(map[string]*Terrain),
	}
}

func (c *cache) put(t *Terrain) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[t.ID]; !ok {
		c.order = append(c.order, t.ID)
	}
	c.items[t.ID] = t

	for len(c.order) > c.limit {
		delete(c.items, c.order[0])
		c.order = c.order[1:]
	}
}

func (c *cache) get(id string) (*Terrain, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.items[id]
	return t, ok
}

func (c *cache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
