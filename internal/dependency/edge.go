package dependency

import (
	"errors"

	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

// Kind is the severity of a dependency edge
type Kind int

const (
	// Required means the dependent cannot function without the dependency
	Required Kind = iota
	// Optional means the dependent works with reduced capability
	Optional
	// Runtime means the dependency is streamed in while running
	Runtime
)

func (k Kind) String() string {
	switch k {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case Runtime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Edge records that Dependent requires Dependency
type Edge struct {
	Dependent  resource.ID
	Dependency resource.ID
	Kind       Kind
	// Path is the source path of the dependency, kept for debugging
	Path string
}

type edgeKey struct {
	from, to resource.ID
}

func (e Edge) key() edgeKey { return edgeKey{from: e.Dependent, to: e.Dependency} }

// Rejection reasons. AddDependency logs them and leaves the graph untouched.
var (
	ErrInvalidID          = errors.New("dependency: invalid resource id")
	ErrSelfDependency     = errors.New("dependency: resource cannot depend on itself")
	ErrCircularDependency = errors.New("dependency: edge would create a cycle")
)

// Observer is notified after an edge has been committed
type Observer func(dependent, dependency resource.ID, kind Kind)

// Resolver reports whether a resource is still alive
type Resolver interface {
	Contains(id resource.ID) bool
}
