package dependency

import "github.com/Tfc538/SilicaEngine-sub000/internal/resource"

// Scope collects the dependencies of one asset and drops all of its edges on
// Close unless Keep was called. Typical use:
//
//	scope := graph.NewScope(materialID)
//	defer scope.Close()
//	if err := scope.Add(textureID, dependency.Required, "albedo.png"); err != nil {
//		return err
//	}
//	scope.Keep()
type Scope struct {
	m     *Manager
	asset resource.ID
	deps  []resource.ID
	keep  bool
}

// NewScope starts a dependency scope for asset
func (m *Manager) NewScope(asset resource.ID) *Scope {
	return &Scope{m: m, asset: asset}
}

// Add records asset -> dependency in the graph
func (s *Scope) Add(dependency resource.ID, kind Kind, path string) error {
	if err := s.m.AddDependency(s.asset, dependency, kind, path); err != nil {
		return err
	}
	s.deps = append(s.deps, dependency)
	return nil
}

// Keep disables cleanup on Close
func (s *Scope) Keep() { s.keep = true }

// Dependencies returns the dependencies added through this scope
func (s *Scope) Dependencies() []resource.ID {
	return append([]resource.ID(nil), s.deps...)
}

// Close removes every edge of the scoped asset unless the scope was kept
func (s *Scope) Close() {
	if s.keep {
		return
	}
	s.m.RemoveAllDependencies(s.asset)
}
