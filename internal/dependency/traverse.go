package dependency

import "github.com/Tfc538/SilicaEngine-sub000/internal/resource"

// All traversals below use explicit stacks: asset graphs come from content
// and can be arbitrarily deep.

// Stats summarizes the graph
type Stats struct {
	TotalDependencies      int
	RequiredDependencies   int
	OptionalDependencies   int
	RuntimeDependencies    int
	AssetsWithDependencies int
	OrphanedAssets         int
	CircularDependencies   int
}

type frame struct {
	id   resource.ID
	next []resource.ID
	i    int
}

// successors returns the dependencies of id in ID order. Callers hold m.mu.
func (m *Manager) successors(id resource.ID) []resource.ID {
	return sortedIDs(m.forward[id])
}

// reachable reports whether to can be reached from from. Callers hold m.mu.
func (m *Manager) reachable(from, to resource.ID) bool {
	if from == to {
		return true
	}
	visited := idSet{from: {}}
	stack := []resource.ID{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range m.forward[current] {
			if next == to {
				return true
			}
			if _, seen := visited[next]; !seen {
				visited[next] = struct{}{}
				stack = append(stack, next)
			}
		}
	}
	return false
}

// HasCircularDependency runs a depth-first search from asset and reports
// whether it finds an edge back onto the current path. It only sees cycles
// reachable from asset; Statistics and Cycles check the whole graph.
func (m *Manager) HasCircularDependency(asset resource.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	visited := idSet{asset: {}}
	onPath := idSet{asset: {}}
	stack := []frame{{id: asset, next: m.successors(asset)}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.i < len(top.next) {
			n := top.next[top.i]
			top.i++
			if _, ok := onPath[n]; ok {
				return true
			}
			if _, ok := visited[n]; !ok {
				visited[n] = struct{}{}
				onPath[n] = struct{}{}
				stack = append(stack, frame{id: n, next: m.successors(n)})
			}
			continue
		}
		delete(onPath, top.id)
		stack = stack[:len(stack)-1]
	}
	return false
}

// postOrder appends the nodes reachable from roots in post-order, which puts
// every dependency before its dependents. Callers hold m.mu.
func (m *Manager) postOrder(roots []resource.ID, visited idSet, out []resource.ID) []resource.ID {
	for _, root := range roots {
		if _, ok := visited[root]; ok {
			continue
		}
		visited[root] = struct{}{}
		stack := []frame{{id: root, next: m.successors(root)}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.i < len(top.next) {
				n := top.next[top.i]
				top.i++
				if _, ok := visited[n]; !ok {
					visited[n] = struct{}{}
					stack = append(stack, frame{id: n, next: m.successors(n)})
				}
				continue
			}
			out = append(out, top.id)
			stack = stack[:len(stack)-1]
		}
	}
	return out
}

// LoadingOrder returns assets together with everything they depend on,
// ordered so that each resource comes after all of its dependencies.
func (m *Manager) LoadingOrder(assets []resource.ID) []resource.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.postOrder(assets, make(idSet), make([]resource.ID, 0, len(assets)))
}

// DependencyChain returns everything asset needs, dependencies first, ending
// with asset itself.
func (m *Manager) DependencyChain(asset resource.ID) []resource.ID {
	return m.LoadingOrder([]resource.ID{asset})
}

// stronglyConnected is an iterative Tarjan over the forward index.
// Callers hold m.mu.
func (m *Manager) stronglyConnected() [][]resource.ID {
	var (
		counter    int
		index      = make(map[resource.ID]int)
		low        = make(map[resource.ID]int)
		onStack    = make(idSet)
		stack      []resource.ID
		components [][]resource.ID
	)

	visit := func(id resource.ID) {
		index[id] = counter
		low[id] = counter
		counter++
		stack = append(stack, id)
		onStack[id] = struct{}{}
	}

	for _, root := range sortedIDs(m.nodes()) {
		if _, seen := index[root]; seen {
			continue
		}
		visit(root)
		call := []frame{{id: root, next: m.successors(root)}}
		for len(call) > 0 {
			f := &call[len(call)-1]
			if f.i < len(f.next) {
				w := f.next[f.i]
				f.i++
				if _, seen := index[w]; !seen {
					visit(w)
					call = append(call, frame{id: w, next: m.successors(w)})
				} else if _, ok := onStack[w]; ok {
					low[f.id] = min(low[f.id], index[w])
				}
				continue
			}

			v := f.id
			if low[v] == index[v] {
				var comp []resource.ID
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					delete(onStack, w)
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				components = append(components, comp)
			}
			call = call[:len(call)-1]
			if len(call) > 0 {
				parent := call[len(call)-1].id
				low[parent] = min(low[parent], low[v])
			}
		}
	}
	return components
}

// Cycles returns every strongly connected component with more than one
// member. It stays empty as long as all edges went through AddDependency.
func (m *Manager) Cycles() [][]resource.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cycles [][]resource.ID
	for _, comp := range m.stronglyConnected() {
		if len(comp) > 1 {
			set := make(idSet, len(comp))
			for _, id := range comp {
				set[id] = struct{}{}
			}
			cycles = append(cycles, sortedIDs(set))
		}
	}
	return cycles
}

// Statistics counts edges by kind, orphaned nodes and cyclic components
func (m *Manager) Statistics() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		TotalDependencies:      len(m.edges),
		AssetsWithDependencies: len(m.forward),
	}
	for _, e := range m.edges {
		switch e.Kind {
		case Required:
			s.RequiredDependencies++
		case Optional:
			s.OptionalDependencies++
		case Runtime:
			s.RuntimeDependencies++
		}
	}
	for id := range m.nodes() {
		if len(m.reverse[id]) == 0 {
			s.OrphanedAssets++
		}
	}
	for _, comp := range m.stronglyConnected() {
		if len(comp) > 1 {
			s.CircularDependencies++
		}
	}
	return s
}
