package assets

import (
	"io"
	"sync/atomic"

	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

// box is the shared, reference-counted home of one payload version. The
// cache owns one reference while the version is current; every Asset
// handed out owns another.
type box struct {
	value any
	refs  atomic.Int32
}

func newBox(value any) *box {
	b := &box{value: value}
	b.refs.Store(1)
	return b
}

func (b *box) acquire() { b.refs.Add(1) }

// release drops one reference and closes the payload when it was the last
func (b *box) release() error {
	if b.refs.Add(-1) != 0 {
		return nil
	}
	if c, ok := b.value.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Asset is one counted reference to a cached payload. It pins the payload
// version it was created with: a hot reload swaps the cache entry but never
// the value seen through an existing Asset. Long-lived consumers should keep
// Handle() and resolve it through the registry instead.
type Asset struct {
	b        *box
	path     string
	kind     resource.Type
	handle   resource.Handle
	released atomic.Bool
}

func newAsset(b *box, path string, kind resource.Type, handle resource.Handle) *Asset {
	b.acquire()
	return &Asset{b: b, path: path, kind: kind, handle: handle}
}

// IsValid reports whether a holds a live reference. Safe on nil.
func (a *Asset) IsValid() bool {
	return a != nil && !a.released.Load()
}

// Value returns the payload, or nil once released
func (a *Asset) Value() any {
	if !a.IsValid() {
		return nil
	}
	return a.b.value
}

func (a *Asset) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

func (a *Asset) Kind() resource.Type {
	if a == nil {
		return resource.TypeUnknown
	}
	return a.kind
}

// Handle returns the registry handle of the cache entry. It stays the same
// across hot reloads.
func (a *Asset) Handle() resource.Handle {
	if a == nil {
		return resource.Handle{}
	}
	return a.handle
}

// Refs returns the number of live references to this payload version,
// including the cache's own while the version is current.
func (a *Asset) Refs() int {
	if a == nil {
		return 0
	}
	return int(a.b.refs.Load())
}

// Clone returns an independent reference to the same payload version
func (a *Asset) Clone() *Asset {
	if !a.IsValid() {
		return nil
	}
	return newAsset(a.b, a.path, a.kind, a.handle)
}

// Release gives the reference back. Releasing twice, or releasing nil, does
// nothing. The payload is closed when its last reference goes.
func (a *Asset) Release() error {
	if a == nil || a.released.Swap(true) {
		return nil
	}
	return a.b.release()
}

// As returns the payload of a as T
func As[T any](a *Asset) (T, bool) {
	v, ok := a.Value().(T)
	return v, ok
}
