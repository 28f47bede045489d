package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Tfc538/SilicaEngine-sub000/internal/dependency"
	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

var (
	ErrNoLoader     = errors.New("assets: no loader registered for kind")
	ErrKindMismatch = errors.New("assets: path already loaded as a different kind")
	ErrCircularLoad = errors.New("assets: circular load")
	ErrNotFound     = errors.New("assets: not loaded")
)

// State is the lifecycle stage of a cache entry
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unloaded"
	}
}

// Sizer is implemented by payloads that can estimate their memory footprint
type Sizer interface {
	Size() int64
}

type entry struct {
	kind     resource.Type
	state    State
	box      *box
	handle   resource.Handle
	options  any
	watched  map[string]watch
	deps     []requirement
	pinned   bool
	loadedAt time.Time
	done     chan struct{}
}

func (e *entry) acquire(p string) *Asset {
	return newAsset(e.box, p, e.kind, e.handle)
}

// EntryInfo describes a cache entry
type EntryInfo struct {
	Path     string
	Kind     resource.Type
	State    State
	Handle   resource.Handle
	Refs     int
	Pinned   bool
	LoadedAt time.Time
	Files    []string
}

// Cache is a path keyed, reference counted asset cache. Every entry is
// registered in the resource registry so its handle survives reloads, and
// edges declared by composite loaders are kept in the dependency graph.
//
// The cache is meant to have a single owner. Its state is guarded by a
// mutex regardless, and LoadAsync and LoadBatch are the supported ways of
// loading from several goroutines.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	loaders map[resource.Type]Loader
	hooks   map[string][]func(*Asset)

	fsys     fs.FS
	registry *resource.Registry
	graph    *dependency.Manager
	stats    *statCache
	metrics  *Metrics
	clock    clock.Clock
	log      *zap.Logger

	hotReload     atomic.Bool
	statWindow    time.Duration
	statCacheSize int
}

// Option configures a Cache
type Option func(*Cache)

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRegistry shares a registry with the rest of the engine
func WithRegistry(r *resource.Registry) Option {
	return func(c *Cache) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithGraph shares a dependency graph with the rest of the engine
func WithGraph(g *dependency.Manager) Option {
	return func(c *Cache) {
		if g != nil {
			c.graph = g
		}
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *Cache) {
		if clk != nil {
			c.clock = clk
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Cache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithStatWindow sets how long file existence answers are reused. Zero
// turns the existence cache off; negative values keep the default.
func WithStatWindow(d time.Duration) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.statWindow = d
		}
	}
}

// WithStatCacheSize bounds the number of remembered existence answers
func WithStatCacheSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.statCacheSize = n
		}
	}
}

func WithHotReload(enabled bool) Option {
	return func(c *Cache) { c.hotReload.Store(enabled) }
}

// New creates a cache reading from fsys
func New(fsys fs.FS, opts ...Option) *Cache {
	c := &Cache{
		entries:       make(map[string]*entry),
		loaders:       make(map[resource.Type]Loader),
		hooks:         make(map[string][]func(*Asset)),
		fsys:          fsys,
		clock:         clock.New(),
		log:           zap.NewNop(),
		statWindow:    defaultStatWindow,
		statCacheSize: defaultStatCacheSize,
	}
	c.hotReload.Store(true)
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = resource.NewRegistry(resource.WithLogger(c.log), resource.WithClock(c.clock))
	}
	if c.graph == nil {
		c.graph = dependency.NewManager(dependency.WithLogger(c.log), dependency.WithNamer(c.registry.NameOf))
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	c.stats = newStatCache(fsys, c.clock, c.statWindow, c.statCacheSize)
	return c
}

func (c *Cache) Registry() *resource.Registry { return c.registry }

func (c *Cache) Graph() *dependency.Manager { return c.graph }

// RegisterLoader installs the loader for kind, replacing any previous one
func (c *Cache) RegisterLoader(kind resource.Type, l Loader) {
	c.mu.Lock()
	c.loaders[kind] = l
	c.mu.Unlock()
}

func cleanPath(p string) string {
	if strings.HasPrefix(p, "builtin:") {
		return p
	}
	return strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/")
}

// Load returns a reference to the asset at path, running the kind's loader
// on a miss. Concurrent loads of one path share a single loader run.
func (c *Cache) Load(kind resource.Type, p string, params Params) (*Asset, error) {
	a, err := c.load(nil, kind, p, params)
	if params.Callback != nil {
		params.Callback(a, err)
	}
	return a, err
}

func (c *Cache) load(parent *Request, kind resource.Type, p string, params Params) (*Asset, error) {
	p = cleanPath(p)
	if parent.chain(p) {
		c.log.Error("circular asset load", zap.String("path", p), zap.String("from", parent.Path))
		return nil, fmt.Errorf("%w: %s", ErrCircularLoad, p)
	}

	for {
		c.mu.Lock()
		e, ok := c.entries[p]
		if ok && e.state == Loading {
			done := e.done
			c.mu.Unlock()
			<-done
			continue
		}
		if ok && e.kind != kind {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: %s is %s, not %s", ErrKindMismatch, p, e.kind, kind)
		}
		if ok && (!params.ForceReload || e.pinned) {
			a := e.acquire(p)
			c.mu.Unlock()
			c.metrics.Hits.Inc()
			return a, nil
		}
		loader := c.loaders[kind]
		if loader == nil {
			c.mu.Unlock()
			c.log.Error("no loader for asset", zap.String("path", p), zap.Stringer("kind", kind))
			return nil, fmt.Errorf("%w %s: %s", ErrNoLoader, kind, p)
		}
		fresh := !ok
		if fresh {
			e = &entry{kind: kind}
			c.entries[p] = e
		}
		e.state = Loading
		e.done = make(chan struct{})
		c.mu.Unlock()

		c.metrics.Misses.Inc()
		return c.run(e, loader, newRequest(c, parent, kind, p, params.Options), fresh)
	}
}

// run executes the loader outside the lock and commits its result
func (c *Cache) run(e *entry, loader Loader, req *Request, fresh bool) (*Asset, error) {
	start := c.clock.Now()
	value, err := invoke(loader, req)
	if err == nil && resource.IsNil(value) {
		err = errors.New("loader returned no payload")
	}

	c.mu.Lock()
	done := e.done
	e.done = nil
	if err != nil {
		if fresh {
			delete(c.entries, req.Path)
		} else {
			e.state = Loaded
		}
		c.mu.Unlock()
		close(done)
		req.releaseHeld()

		c.metrics.Failures.Inc()
		c.log.Error("failed to load asset",
			zap.String("path", req.Path),
			zap.Stringer("kind", req.Kind),
			zap.Error(err))
		return nil, fmt.Errorf("assets: load %s: %w", req.Path, err)
	}

	old := e.box
	e.box = newBox(value)
	e.state = Loaded
	e.options = req.options
	e.watched = req.watched
	e.deps = req.deps
	e.loadedAt = c.clock.Now()
	if !e.handle.IsValid() || !c.registry.Update(e.handle, value) {
		e.handle = c.registry.Register(value, e.kind, req.Path)
	}
	a := e.acquire(req.Path)
	c.metrics.Entries.Set(float64(len(c.entries)))
	c.mu.Unlock()
	close(done)

	if old != nil {
		if cerr := old.release(); cerr != nil {
			c.log.Warn("closing replaced asset failed", zap.String("path", req.Path), zap.Error(cerr))
		}
	}
	c.link(e.handle.ID(), req.deps, !fresh)

	c.metrics.Loads.Inc()
	c.log.Debug("loaded asset",
		zap.String("path", req.Path),
		zap.Stringer("handle", a.Handle()),
		zap.Int("dependencies", len(req.deps)),
		zap.Duration("took", c.clock.Since(start)))
	return a, nil
}

func invoke(l Loader, req *Request) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loader panicked: %v", r)
		}
	}()
	return l.Load(req)
}

// link commits the edges a loader declared. A reload replaces the old set.
func (c *Cache) link(id resource.ID, deps []requirement, replace bool) {
	if replace {
		c.graph.ClearDependencies(id)
	}
	for _, d := range deps {
		// rejections are logged by the graph
		_ = c.graph.AddDependency(id, d.id, d.kind, d.path)
	}
}

// Get returns a new reference to a loaded asset, or nil
func (c *Cache) Get(p string) *Asset {
	p = cleanPath(p)
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[p]
	if !ok || e.state != Loaded {
		return nil
	}
	return e.acquire(p)
}

func (c *Cache) IsLoaded(p string) bool {
	return c.State(p) == Loaded
}

func (c *Cache) State(p string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[cleanPath(p)]
	if !ok {
		return Unloaded
	}
	return e.state
}

// Handle returns the stable registry handle of the asset at path
func (c *Cache) Handle(p string) (resource.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[cleanPath(p)]
	if !ok || !e.handle.IsValid() {
		return resource.Handle{}, false
	}
	return e.handle, true
}

// Info describes the entry at path
func (c *Cache) Info(p string) (EntryInfo, bool) {
	p = cleanPath(p)
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[p]
	if !ok {
		return EntryInfo{}, false
	}
	info := EntryInfo{
		Path:     p,
		Kind:     e.kind,
		State:    e.state,
		Handle:   e.handle,
		Pinned:   e.pinned,
		LoadedAt: e.loadedAt,
	}
	if e.box != nil {
		info.Refs = int(e.box.refs.Load())
	}
	for name := range e.watched {
		info.Files = append(info.Files, name)
	}
	sort.Strings(info.Files)
	return info, true
}

// Put stores a ready-made payload under path. Put entries are pinned: they
// are never hot reloaded or collected, only unloaded explicitly.
func (c *Cache) Put(kind resource.Type, p string, payload any) (*Asset, error) {
	if resource.IsNil(payload) {
		return nil, fmt.Errorf("assets: put %s: nil payload", p)
	}
	p = cleanPath(p)

	c.mu.Lock()
	e, ok := c.entries[p]
	if ok && (e.state == Loading || e.kind != kind) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrKindMismatch, p)
	}
	if !ok {
		e = &entry{kind: kind}
		c.entries[p] = e
	}
	old := e.box
	e.box = newBox(payload)
	e.state = Loaded
	e.pinned = true
	e.loadedAt = c.clock.Now()
	if !e.handle.IsValid() || !c.registry.Update(e.handle, payload) {
		e.handle = c.registry.Register(payload, kind, p)
	}
	a := e.acquire(p)
	c.metrics.Entries.Set(float64(len(c.entries)))
	c.mu.Unlock()

	if old != nil {
		_ = old.release()
	}
	return a, nil
}

// Unload drops the cache's reference to the asset at path. Outstanding
// references stay usable; the registry slot and graph edges are removed.
func (c *Cache) Unload(p string) bool {
	p = cleanPath(p)
	c.mu.Lock()
	e, ok := c.entries[p]
	if !ok || e.state != Loaded {
		c.mu.Unlock()
		return false
	}
	delete(c.entries, p)
	c.metrics.Entries.Set(float64(len(c.entries)))
	c.mu.Unlock()

	if err := c.evict(p, e); err != nil {
		c.log.Warn("closing unloaded asset failed", zap.String("path", p), zap.Error(err))
	}
	return true
}

// UnloadAll unloads every entry of kind and returns how many went
func (c *Cache) UnloadAll(kind resource.Type) int {
	n := 0
	for _, p := range c.Paths(kind) {
		if c.Unload(p) {
			n++
		}
	}
	return n
}

// evict tears down an entry already removed from the map
func (c *Cache) evict(p string, e *entry) error {
	c.mu.Lock()
	delete(c.hooks, p)
	c.mu.Unlock()

	c.registry.Remove(e.handle)
	c.graph.RemoveAllDependencies(e.handle.ID())
	c.metrics.Evictions.Inc()
	c.log.Debug("evicted asset", zap.String("path", p), zap.Stringer("handle", e.handle))
	return e.box.release()
}

// Len returns the number of entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Count returns the number of loaded entries of kind
func (c *Cache) Count(kind resource.Type) int {
	return len(c.Paths(kind))
}

// Paths lists the loaded entries of kind in path order. TypeUnknown lists all.
func (c *Cache) Paths(kind resource.Type) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for p, e := range c.entries {
		if e.state != Loaded {
			continue
		}
		if kind == resource.TypeUnknown || e.kind == kind {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// MemoryUsage sums the sizes reported by payloads implementing Sizer
func (c *Cache) MemoryUsage() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, e := range c.entries {
		if e.state != Loaded {
			continue
		}
		if s, ok := e.box.value.(Sizer); ok {
			total += s.Size()
		}
	}
	return total
}

// Shutdown unloads every entry, pinned ones included, and returns the
// combined close errors.
func (c *Cache) Shutdown() error {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*entry)
	c.hooks = make(map[string][]func(*Asset))
	c.metrics.Entries.Set(0)
	c.mu.Unlock()

	paths := make([]string, 0, len(entries))
	for p, e := range entries {
		if e.state == Loaded {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	var err error
	for _, p := range paths {
		err = multierr.Append(err, c.evict(p, entries[p]))
	}
	c.log.Info("asset cache shut down", zap.Int("entries", len(paths)), zap.Error(err))
	return err
}
