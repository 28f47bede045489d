package dependency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

const (
	a resource.ID = iota + 1
	b
	c
	d
	e
)

func TestReverseEdgeRejected(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	m := NewManager(WithLogger(zap.New(core)))

	require.NoError(t, m.AddDependency(a, b, Required, "b.png"))
	err := m.AddDependency(b, a, Required, "a.mat")
	assert.ErrorIs(t, err, ErrCircularDependency)

	assert.Equal(t, 1, m.Len())
	assert.False(t, m.HasCircularDependency(a))
	assert.Equal(t, 1, logs.FilterMessage("circular dependency detected").Len())
}

func TestTransitiveCycleRejected(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddDependency(a, b, Required, ""))
	require.NoError(t, m.AddDependency(b, c, Required, ""))

	assert.ErrorIs(t, m.AddDependency(c, a, Required, ""), ErrCircularDependency)

	assert.Equal(t, 2, m.Len())
	assert.Zero(t, m.Statistics().CircularDependencies)
	assert.Empty(t, m.Cycles())
	assert.False(t, m.HasDependency(c, a))
}

func TestSelfAndInvalidRejected(t *testing.T) {
	m := NewManager()

	assert.ErrorIs(t, m.AddDependency(a, a, Required, ""), ErrSelfDependency)
	assert.ErrorIs(t, m.AddDependency(resource.InvalidID, a, Required, ""), ErrInvalidID)
	assert.ErrorIs(t, m.AddDependency(a, resource.InvalidID, Required, ""), ErrInvalidID)
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Nodes())
}

func TestDuplicateEdgeIsNoop(t *testing.T) {
	m := NewManager()
	var calls int
	m.Subscribe(func(resource.ID, resource.ID, Kind) { calls++ })

	require.NoError(t, m.AddDependency(a, b, Required, "first"))
	require.NoError(t, m.AddDependency(a, b, Optional, "second"))

	deps := m.Dependencies(a)
	require.Len(t, deps, 1)
	assert.Equal(t, Required, deps[0].Kind)
	assert.Equal(t, "first", deps[0].Path)
	assert.Equal(t, 1, calls)
}

func TestLoadingOrderDependenciesFirst(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddDependency(a, b, Required, ""))
	require.NoError(t, m.AddDependency(b, c, Required, ""))

	assert.Equal(t, []resource.ID{c, b, a}, m.LoadingOrder([]resource.ID{a, b, c}))
	assert.Equal(t, []resource.ID{c, b, a}, m.LoadingOrder([]resource.ID{c, b, a}))
	assert.Equal(t, []resource.ID{c, b}, m.DependencyChain(b))
	assert.Equal(t, []resource.ID{d}, m.LoadingOrder([]resource.ID{d}))
}

func TestLoadingOrderDiamond(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddDependency(a, b, Required, ""))
	require.NoError(t, m.AddDependency(a, c, Required, ""))
	require.NoError(t, m.AddDependency(b, d, Required, ""))
	require.NoError(t, m.AddDependency(c, d, Required, ""))

	order := m.LoadingOrder([]resource.ID{a})
	require.Len(t, order, 4)
	pos := make(map[resource.ID]int)
	for i, id := range order {
		pos[id] = i
	}
	for _, edge := range [][2]resource.ID{{a, b}, {a, c}, {b, d}, {c, d}} {
		assert.Less(t, pos[edge[1]], pos[edge[0]], "%d must load before %d", edge[1], edge[0])
	}
}

func TestRemoveAllDependenciesTwice(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddDependency(a, b, Required, ""))
	require.NoError(t, m.AddDependency(b, c, Optional, ""))
	require.NoError(t, m.AddDependency(d, b, Runtime, ""))

	m.RemoveAllDependencies(b)
	assert.NotPanics(t, func() { m.RemoveAllDependencies(b) })

	assert.Zero(t, m.Len())
	m.mu.RLock()
	defer m.mu.RUnlock()
	assert.NotContains(t, m.forward, b)
	assert.NotContains(t, m.reverse, b)
	assert.Empty(t, m.forward)
	assert.Empty(t, m.reverse)
}

func TestRemoveDependencyKeepsIndicesInSync(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddDependency(a, b, Required, ""))
	require.NoError(t, m.AddDependency(a, c, Required, ""))

	m.RemoveDependency(a, b)
	m.RemoveDependency(a, b)

	assert.Equal(t, []resource.ID{a}, m.Dependents(c))
	assert.Empty(t, m.Dependents(b))
	assert.True(t, m.HasDependency(a, c))
	assert.False(t, m.HasDependency(a, b))
}

func TestClearDependenciesKeepsIncoming(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddDependency(a, b, Required, ""))
	require.NoError(t, m.AddDependency(b, c, Required, ""))

	m.ClearDependencies(b)

	assert.Empty(t, m.Dependencies(b))
	assert.Equal(t, []resource.ID{a}, m.Dependents(b))
	assert.Equal(t, 1, m.Len())
}

func TestHasDependencyTransitive(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddDependency(a, b, Required, ""))
	require.NoError(t, m.AddDependency(b, c, Required, ""))
	require.NoError(t, m.AddDependency(c, d, Required, ""))

	assert.True(t, m.HasDependency(a, b))
	assert.True(t, m.HasDependency(a, d))
	assert.False(t, m.HasDependency(d, a))
	assert.False(t, m.HasDependency(a, e))
}

func TestStatisticsFiveNodesThreeEdges(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddDependency(a, b, Required, ""))
	require.NoError(t, m.AddDependency(b, c, Optional, ""))
	require.NoError(t, m.AddDependency(d, e, Runtime, ""))

	s := m.Statistics()
	assert.Equal(t, 3, s.TotalDependencies)
	assert.Equal(t, 1, s.RequiredDependencies)
	assert.Equal(t, 1, s.OptionalDependencies)
	assert.Equal(t, 1, s.RuntimeDependencies)
	assert.Equal(t, 3, s.AssetsWithDependencies)
	assert.Equal(t, 2, s.OrphanedAssets) // a and d
	assert.Zero(t, s.CircularDependencies)
	assert.Equal(t, []resource.ID{a, d}, m.Orphans())
}

func TestTarjanFindsInjectedCycles(t *testing.T) {
	m := NewManager()
	// Bypass AddDependency to build graphs it would refuse.
	m.mu.Lock()
	m.link(Edge{Dependent: a, Dependency: b})
	m.link(Edge{Dependent: b, Dependency: c})
	m.link(Edge{Dependent: c, Dependency: a})
	m.link(Edge{Dependent: d, Dependency: e})
	m.link(Edge{Dependent: e, Dependency: d})
	m.mu.Unlock()

	assert.Equal(t, 2, m.Statistics().CircularDependencies)
	assert.Equal(t, [][]resource.ID{{a, b, c}, {d, e}}, m.Cycles())
	assert.True(t, m.HasCircularDependency(a))
	assert.True(t, m.HasCircularDependency(e))
}

func TestSingleRootCheckMissesUnreachableCycle(t *testing.T) {
	m := NewManager()
	m.mu.Lock()
	m.link(Edge{Dependent: a, Dependency: b})
	m.link(Edge{Dependent: c, Dependency: d})
	m.link(Edge{Dependent: d, Dependency: c})
	m.mu.Unlock()

	assert.False(t, m.HasCircularDependency(a))
	assert.Equal(t, 1, m.Statistics().CircularDependencies)
}

func TestDeepChainDoesNotRecurse(t *testing.T) {
	m := NewManager()
	const depth = 50000
	for i := resource.ID(1); i < depth; i++ {
		require.NoError(t, m.AddDependency(i, i+1, Required, ""))
	}

	order := m.LoadingOrder([]resource.ID{1})
	require.Len(t, order, depth)
	assert.Equal(t, resource.ID(depth), order[0])
	assert.Equal(t, resource.ID(1), order[depth-1])
	assert.False(t, m.HasCircularDependency(1))
	assert.Zero(t, m.Statistics().CircularDependencies)
}

type liveSet map[resource.ID]bool

func (s liveSet) Contains(id resource.ID) bool { return s[id] }

func TestValidate(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddDependency(a, b, Required, ""))
	require.NoError(t, m.AddDependency(a, c, Required, ""))

	assert.Equal(t, []resource.ID{c}, m.Validate(liveSet{a: true, b: true}))
	assert.Empty(t, m.Validate(liveSet{a: true, b: true, c: true}))
}

func TestObserverPanicIsContained(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	m := NewManager(WithLogger(zap.New(core)))

	var got []Kind
	m.Subscribe(func(resource.ID, resource.ID, Kind) { panic("boom") })
	m.Subscribe(func(_, _ resource.ID, k Kind) { got = append(got, k) })

	require.NoError(t, m.AddDependency(a, b, Optional, ""))

	assert.Equal(t, []Kind{Optional}, got)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, logs.FilterMessage("dependency observer panicked").Len())

	m.ClearObservers()
	require.NoError(t, m.AddDependency(b, c, Required, ""))
	assert.Len(t, got, 1)
}

func TestRejectedEdgeNotObserved(t *testing.T) {
	m := NewManager()
	var calls int
	m.Subscribe(func(resource.ID, resource.ID, Kind) { calls++ })

	require.NoError(t, m.AddDependency(a, b, Required, ""))
	_ = m.AddDependency(b, a, Required, "")
	_ = m.AddDependency(c, c, Required, "")

	assert.Equal(t, 1, calls)
}

func TestConcurrentMutationsStayAcyclic(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				from := resource.ID((w*31+i*7)%40 + 1)
				to := resource.ID((w*17+i*13)%40 + 1)
				_ = m.AddDependency(from, to, Required, "")
				m.HasDependency(to, from)
				m.LoadingOrder([]resource.ID{from})
				if i%25 == 0 {
					m.RemoveAllDependencies(to)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Zero(t, m.Statistics().CircularDependencies)
	assert.Empty(t, m.Cycles())
}

func TestClear(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddDependency(a, b, Required, ""))
	m.Subscribe(func(resource.ID, resource.ID, Kind) { t.Fatal("observer survived Clear") })

	m.Clear()

	assert.Zero(t, m.Len())
	require.NoError(t, m.AddDependency(b, a, Required, ""))
}
