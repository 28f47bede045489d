package dependency

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

var edgeStyles = map[Kind]string{
	Required: "solid",
	Optional: "dashed",
	Runtime:  "dotted",
}

// ExportDOT renders the graph in Graphviz DOT form. Output is sorted so the
// same graph always renders the same text.
func (m *Manager) ExportDOT() string {
	m.mu.RLock()
	nodes := sortedIDs(m.nodes())
	edges := make([]Edge, 0, len(m.edges))
	for _, e := range m.edges {
		edges = append(edges, e)
	}
	m.mu.RUnlock()

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Dependent != edges[j].Dependent {
			return edges[i].Dependent < edges[j].Dependent
		}
		return edges[i].Dependency < edges[j].Dependency
	})

	var b strings.Builder
	b.WriteString("digraph AssetDependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")
	for _, id := range nodes {
		fmt.Fprintf(&b, "  n%d [label=%s];\n", id, strconv.Quote(m.label(id)))
	}
	for _, e := range edges {
		fmt.Fprintf(&b, "  n%d -> n%d [style=%s", e.Dependent, e.Dependency, edgeStyles[e.Kind])
		if e.Path != "" {
			fmt.Fprintf(&b, ", label=%s", strconv.Quote(e.Path))
		}
		b.WriteString("];\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func (m *Manager) label(id resource.ID) string {
	if m.namer != nil {
		if name := m.namer(id); name != "" {
			return fmt.Sprintf("%s (#%d)", name, id)
		}
	}
	return fmt.Sprintf("#%d", id)
}
