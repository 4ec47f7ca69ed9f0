package ingest

import (
	"sync"

	"github.com/google/uuid"
)

// callCache is a bounded call-id to session-id lookup shortcut for webhook
// dispatch. It is never authoritative; every lookup path falls back to the
// session store, so eviction only costs an extra query.
type callCache struct {
	mu    sync.Mutex
	max   int
	ids   map[string]uuid.UUID
	order []string
}

func newCallCache(max int) *callCache {
	if max <= 0 {
		max = 256
	}
	return &callCache{
		max: max,
		ids: make(map[string]uuid.UUID, max),
	}
}

func (c *callCache) put(callID string, sessionID uuid.UUID) {
	if callID == "" || sessionID == uuid.Nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.ids[callID]; !ok {
		if len(c.order) >= c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.ids, oldest)
		}
		c.order = append(c.order, callID)
	}
	c.ids[callID] = sessionID
}

func (c *callCache) get(callID string) (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[callID]
	return id, ok
}

func (c *callCache) drop(callID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ids[callID]; !ok {
		return
	}
	delete(c.ids, callID)
	for i, k := range c.order {
		if k == callID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *callCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}
