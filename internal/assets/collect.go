package assets

import (
	"sort"

	"go.uber.org/zap"
)

// CleanupUnusedAssets removes every entry that only the cache still
// references and returns how many were removed. Pinned entries stay, and so
// do entries with dependents in the graph: a dependent may hold a version
// from before a hot reload and reach the current one through the registry.
func (c *Cache) CleanupUnusedAssets() int {
	c.mu.Lock()
	unused := make(map[string]*entry)
	for p, e := range c.entries {
		if e.state != Loaded || e.pinned || e.box.refs.Load() != 1 {
			continue
		}
		if len(c.graph.Dependents(e.handle.ID())) == 0 {
			unused[p] = e
			delete(c.entries, p)
		}
	}
	c.metrics.Entries.Set(float64(len(c.entries)))
	c.mu.Unlock()

	paths := make([]string, 0, len(unused))
	for p := range unused {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := c.evict(p, unused[p]); err != nil {
			c.log.Warn("closing collected asset failed", zap.String("path", p), zap.Error(err))
		}
	}
	if len(paths) > 0 {
		c.log.Debug("collected unused assets", zap.Strings("paths", paths))
	}
	return len(paths)
}

// ForceGarbageCollection repeats CleanupUnusedAssets until a pass removes
// nothing. Closing a composite releases its dependencies, which can make
// them collectable in the next pass.
func (c *Cache) ForceGarbageCollection() int {
	total := 0
	for {
		n := c.CleanupUnusedAssets()
		if n == 0 {
			break
		}
		total += n
	}
	c.log.Info("garbage collection finished", zap.Int("removed", total), zap.Int("remaining", c.Len()))
	return total
}
