package assets

import (
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

// SetHotReload turns change detection on or off
func (c *Cache) SetHotReload(enabled bool) {
	c.hotReload.Store(enabled)
	c.log.Info("hot reload toggled", zap.Bool("enabled", enabled))
}

func (c *Cache) HotReload() bool { return c.hotReload.Load() }

// OnReload registers fn to run after the asset at path has been hot
// reloaded. fn borrows the new asset. Hooks are dropped when the entry is
// unloaded.
func (c *Cache) OnReload(p string, fn func(*Asset)) {
	if fn == nil {
		return
	}
	p = cleanPath(p)
	c.mu.Lock()
	c.hooks[p] = append(c.hooks[p], fn)
	c.mu.Unlock()
}

type staleEntry struct {
	path    string
	kind    resource.Type
	options any
}

// CheckForChanges reloads every entry with a watched file newer than the
// version loaded, and returns how many were replaced. A failed reload keeps
// the previous payload until the files change again.
func (c *Cache) CheckForChanges() int {
	if !c.hotReload.Load() {
		return 0
	}

	c.mu.Lock()
	var stale []staleEntry
	for p, e := range c.entries {
		if e.state != Loaded || e.pinned {
			continue
		}
		for name, w := range e.watched {
			if c.stats.changed(name, w) {
				stale = append(stale, staleEntry{path: p, kind: e.kind, options: e.options})
				break
			}
		}
	}
	c.mu.Unlock()

	sort.Slice(stale, func(i, j int) bool { return stale[i].path < stale[j].path })

	reloaded := 0
	for _, s := range stale {
		a, err := c.load(nil, s.kind, s.path, Params{ForceReload: true, Options: s.options})
		if err != nil {
			c.log.Warn("hot reload failed, keeping previous version",
				zap.String("path", s.path), zap.Error(err))
			c.refreshWatched(s.path)
			continue
		}
		reloaded++
		c.metrics.Reloads.Inc()
		c.log.Info("hot reloaded asset", zap.String("path", s.path), zap.Stringer("handle", a.Handle()))
		c.fireHooks(s.path, a)
		_ = a.Release()
	}
	return reloaded
}

// refreshWatched records the current state of the files of path
func (c *Cache) refreshWatched(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[p]
	if !ok {
		return
	}
	watched := make(map[string]watch, len(e.watched))
	for name := range e.watched {
		watched[name] = c.stats.current(name)
	}
	e.watched = watched
}

func (c *Cache) fireHooks(p string, a *Asset) {
	c.mu.Lock()
	hooks := slices.Clone(c.hooks[p])
	c.mu.Unlock()

	for _, fn := range hooks {
		c.callHook(p, fn, a)
	}
}

func (c *Cache) callHook(p string, fn func(*Asset), a *Asset) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("reload callback panicked", zap.String("path", p), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn(a)
}
