package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

func TestExportDOT(t *testing.T) {
	names := map[resource.ID]string{a: "stone.mat", b: "stone.png"}
	m := NewManager(WithNamer(func(id resource.ID) string { return names[id] }))

	require.NoError(t, m.AddDependency(a, c, Optional, "normal.png"))
	require.NoError(t, m.AddDependency(a, b, Required, "stone.png"))

	want := "digraph AssetDependencies {\n" +
		"  rankdir=LR;\n" +
		"  node [shape=box];\n" +
		"  n1 [label=\"stone.mat (#1)\"];\n" +
		"  n2 [label=\"stone.png (#2)\"];\n" +
		"  n3 [label=\"#3\"];\n" +
		"  n1 -> n2 [style=solid, label=\"stone.png\"];\n" +
		"  n1 -> n3 [style=dashed, label=\"normal.png\"];\n" +
		"}\n"
	assert.Equal(t, want, m.ExportDOT())
	assert.Equal(t, want, m.ExportDOT())
}

func TestExportDOTEmpty(t *testing.T) {
	m := NewManager()
	assert.Equal(t, "digraph AssetDependencies {\n  rankdir=LR;\n  node [shape=box];\n}\n", m.ExportDOT())
}

func TestScopeRollsBackUnlessKept(t *testing.T) {
	m := NewManager()

	func() {
		scope := m.NewScope(a)
		defer scope.Close()
		require.NoError(t, scope.Add(b, Required, ""))
		require.NoError(t, scope.Add(c, Runtime, ""))
		assert.Equal(t, []resource.ID{b, c}, scope.Dependencies())
	}()
	assert.Zero(t, m.Len())

	func() {
		scope := m.NewScope(a)
		defer scope.Close()
		require.NoError(t, scope.Add(b, Required, ""))
		assert.ErrorIs(t, scope.Add(a, Required, ""), ErrSelfDependency)
		scope.Keep()
	}()
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, "required", Required.String())
}
