package cache

import (
	"fmt"
	"sync"

	"github.com/OCAP2/geoanchor/internal/anchor"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// AnchorCache holds the anchors the host ticks. Iteration order is
// registration order so every tick updates anchors the same way.
type AnchorCache struct {
	mu      sync.RWMutex
	order   []string
	anchors map[string]*anchor.Anchor
}

func NewAnchorCache() *AnchorCache {
	return &AnchorCache{
		anchors: make(map[string]*anchor.Anchor),
	}
}

// Add registers a. Names must be unique.
func (c *AnchorCache) Add(a *anchor.Anchor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.anchors[a.Name()]; ok {
		return fmt.Errorf("anchor %q already registered", a.Name())
	}
	c.anchors[a.Name()] = a
	c.order = append(c.order, a.Name())
	return nil
}

func (c *AnchorCache) Get(name string) (*anchor.Anchor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.anchors[name]
	return a, ok
}

// Remove drops the anchor and reports whether it was present.
func (c *AnchorCache) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.anchors[name]; !ok {
		return false
	}
	delete(c.anchors, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// All returns a snapshot in registration order.
func (c *AnchorCache) All() []*anchor.Anchor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*anchor.Anchor, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.anchors[n])
	}
	return out
}

func (c *AnchorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

func (c *AnchorCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.anchors = make(map[string]*anchor.Anchor)
}

// StateCounts counts anchors per mode and resolution state.
func (c *AnchorCache) StateCounts() map[core.Mode]map[core.ResolutionState]int {
	counts := make(map[core.Mode]map[core.ResolutionState]int)
	for _, a := range c.All() {
		byState, ok := counts[a.Mode()]
		if !ok {
			byState = make(map[core.ResolutionState]int)
			counts[a.Mode()] = byState
		}
		byState[a.State()]++
	}
	return counts
}
