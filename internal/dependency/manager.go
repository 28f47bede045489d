package dependency

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

type idSet map[resource.ID]struct{}

// Manager tracks "X requires Y" edges between resources. The graph is kept
// acyclic: an edge that would close a cycle is rejected before it is stored.
// Readers share the lock, writers hold it exclusively.
type Manager struct {
	mu      sync.RWMutex
	edges   map[edgeKey]Edge
	forward map[resource.ID]idSet // dependent -> dependencies
	reverse map[resource.ID]idSet // dependency -> dependents

	obsMu     sync.Mutex
	observers []Observer

	namer func(resource.ID) string
	log   *zap.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used for graph events
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithNamer sets the function used to label nodes in DOT exports
func WithNamer(fn func(resource.ID) string) Option {
	return func(m *Manager) { m.namer = fn }
}

// NewManager creates an empty dependency graph
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		edges:   make(map[edgeKey]Edge),
		forward: make(map[resource.ID]idSet),
		reverse: make(map[resource.ID]idSet),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddDependency records that dependent requires dependency. Invalid IDs,
// self edges and edges that would close a cycle are logged and rejected;
// the graph is left unchanged in every rejected case. Adding an edge that
// already exists is a no-op.
func (m *Manager) AddDependency(dependent, dependency resource.ID, kind Kind, path string) error {
	if dependent == resource.InvalidID || dependency == resource.InvalidID {
		m.log.Error("rejected dependency on invalid resource",
			zap.Uint64("dependent", uint64(dependent)),
			zap.Uint64("dependency", uint64(dependency)))
		return ErrInvalidID
	}
	if dependent == dependency {
		m.log.Error("self-dependency detected", zap.Uint64("asset", uint64(dependent)))
		return ErrSelfDependency
	}

	e := Edge{Dependent: dependent, Dependency: dependency, Kind: kind, Path: path}

	m.mu.Lock()
	if _, exists := m.edges[e.key()]; exists {
		m.mu.Unlock()
		return nil
	}
	// The graph is acyclic, so dependent -> dependency closes a cycle exactly
	// when dependency already reaches dependent.
	if m.reachable(dependency, dependent) {
		m.mu.Unlock()
		m.log.Error("circular dependency detected",
			zap.Uint64("dependent", uint64(dependent)),
			zap.Uint64("dependency", uint64(dependency)),
			zap.String("path", path))
		return ErrCircularDependency
	}
	m.link(e)
	m.mu.Unlock()

	m.log.Debug("added dependency",
		zap.Uint64("dependent", uint64(dependent)),
		zap.Uint64("dependency", uint64(dependency)),
		zap.Stringer("kind", kind))
	m.notify(dependent, dependency, kind)
	return nil
}

// link stores e in the edge set and both indices. Callers hold m.mu.
func (m *Manager) link(e Edge) {
	m.edges[e.key()] = e
	addTo(m.forward, e.Dependent, e.Dependency)
	addTo(m.reverse, e.Dependency, e.Dependent)
}

// unlink removes the edge from -> to from the edge set and both indices.
// Callers hold m.mu.
func (m *Manager) unlink(from, to resource.ID) bool {
	k := edgeKey{from: from, to: to}
	if _, ok := m.edges[k]; !ok {
		return false
	}
	delete(m.edges, k)
	removeFrom(m.forward, from, to)
	removeFrom(m.reverse, to, from)
	return true
}

func addTo(index map[resource.ID]idSet, key, value resource.ID) {
	set, ok := index[key]
	if !ok {
		set = make(idSet)
		index[key] = set
	}
	set[value] = struct{}{}
}

func removeFrom(index map[resource.ID]idSet, key, value resource.ID) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, value)
	if len(set) == 0 {
		delete(index, key)
	}
}

// RemoveDependency removes the edge dependent -> dependency if present
func (m *Manager) RemoveDependency(dependent, dependency resource.ID) {
	m.mu.Lock()
	removed := m.unlink(dependent, dependency)
	m.mu.Unlock()

	if removed {
		m.log.Debug("removed dependency",
			zap.Uint64("dependent", uint64(dependent)),
			zap.Uint64("dependency", uint64(dependency)))
	}
}

// ClearDependencies removes every outgoing edge of asset and keeps the
// edges of resources that depend on it.
func (m *Manager) ClearDependencies(asset resource.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for dep := range m.forward[asset] {
		m.unlink(asset, dep)
	}
}

// RemoveAllDependencies removes every edge touching asset, in both
// directions. Calling it again on a clean node does nothing.
func (m *Manager) RemoveAllDependencies(asset resource.ID) {
	m.mu.Lock()
	n := 0
	for dep := range m.forward[asset] {
		if m.unlink(asset, dep) {
			n++
		}
	}
	for dependent := range m.reverse[asset] {
		if m.unlink(dependent, asset) {
			n++
		}
	}
	m.mu.Unlock()

	if n > 0 {
		m.log.Debug("removed all dependencies",
			zap.Uint64("asset", uint64(asset)),
			zap.Int("edges", n))
	}
}

// Dependencies returns the outgoing edges of asset ordered by dependency ID
func (m *Manager) Dependencies(asset resource.ID) []Edge {
	m.mu.RLock()
	out := make([]Edge, 0, len(m.forward[asset]))
	for dep := range m.forward[asset] {
		out = append(out, m.edges[edgeKey{from: asset, to: dep}])
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Dependency < out[j].Dependency })
	return out
}

// Dependents returns the resources that directly depend on asset
func (m *Manager) Dependents(asset resource.ID) []resource.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedIDs(m.reverse[asset])
}

// HasDependency reports whether dependent requires dependency, directly or
// through any chain of edges.
func (m *Manager) HasDependency(dependent, dependency resource.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.edges[edgeKey{from: dependent, to: dependency}]; ok {
		return true
	}

	visited := make(idSet)
	queue := make([]resource.ID, 0, len(m.forward[dependent]))
	for dep := range m.forward[dependent] {
		queue = append(queue, dep)
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}
		if current == dependency {
			return true
		}
		for next := range m.forward[current] {
			if _, seen := visited[next]; !seen {
				queue = append(queue, next)
			}
		}
	}
	return false
}

// Len returns the number of edges
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.edges)
}

// Nodes returns every resource that appears in at least one edge
func (m *Manager) Nodes() []resource.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedIDs(m.nodes())
}

// nodes collects the node set. Callers hold m.mu.
func (m *Manager) nodes() idSet {
	all := make(idSet, len(m.forward)+len(m.reverse))
	for id := range m.forward {
		all[id] = struct{}{}
	}
	for id := range m.reverse {
		all[id] = struct{}{}
	}
	return all
}

// Orphans returns the known resources nothing depends on; these can be
// unloaded without breaking another asset.
func (m *Manager) Orphans() []resource.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(idSet)
	for id := range m.nodes() {
		if len(m.reverse[id]) == 0 {
			out[id] = struct{}{}
		}
	}
	return sortedIDs(out)
}

// Validate returns the dependencies that r no longer knows about
func (m *Manager) Validate(r Resolver) []resource.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	missing := make(idSet)
	for dep := range m.reverse {
		if !r.Contains(dep) {
			missing[dep] = struct{}{}
		}
	}
	return sortedIDs(missing)
}

// Subscribe registers an observer for committed edges
func (m *Manager) Subscribe(fn Observer) {
	if fn == nil {
		return
	}
	m.obsMu.Lock()
	m.observers = append(m.observers, fn)
	m.obsMu.Unlock()
}

// ClearObservers drops every registered observer
func (m *Manager) ClearObservers() {
	m.obsMu.Lock()
	m.observers = nil
	m.obsMu.Unlock()
}

// notify runs without the graph lock held, so an observer may see a graph
// that has already moved on.
func (m *Manager) notify(dependent, dependency resource.ID, kind Kind) {
	m.obsMu.Lock()
	observers := append([]Observer(nil), m.observers...)
	m.obsMu.Unlock()

	for _, fn := range observers {
		m.callObserver(fn, dependent, dependency, kind)
	}
}

func (m *Manager) callObserver(fn Observer, dependent, dependency resource.ID, kind Kind) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("dependency observer panicked",
				zap.Uint64("dependent", uint64(dependent)),
				zap.Uint64("dependency", uint64(dependency)),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn(dependent, dependency, kind)
}

// Clear removes every edge and observer
func (m *Manager) Clear() {
	m.mu.Lock()
	m.log.Info("clearing asset dependencies", zap.Int("edges", len(m.edges)))
	m.edges = make(map[edgeKey]Edge)
	m.forward = make(map[resource.ID]idSet)
	m.reverse = make(map[resource.ID]idSet)
	m.mu.Unlock()

	m.ClearObservers()
}

func sortedIDs(set idSet) []resource.ID {
	out := make([]resource.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
