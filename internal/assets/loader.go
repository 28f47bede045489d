package assets

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/Tfc538/SilicaEngine-sub000/internal/dependency"
	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

// Loader builds the payload for one asset kind
type Loader interface {
	Load(req *Request) (any, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(req *Request) (any, error)

func (f LoaderFunc) Load(req *Request) (any, error) { return f(req) }

// Params controls a single Load call
type Params struct {
	// ForceReload bypasses a cache hit and runs the loader again
	ForceReload bool
	// Options is handed to the loader through Request.Options and kept with
	// the entry so hot reload can repeat the load
	Options any
	// Callback runs when the load finishes. It borrows the asset; Clone it
	// to keep a reference.
	Callback func(*Asset, error)
}

type watch struct {
	mod   time.Time
	known bool
}

type requirement struct {
	id   resource.ID
	kind dependency.Kind
	path string
}

// Request is what a loader sees while it runs. It is only valid for the
// duration of the Load call.
type Request struct {
	Path string
	Kind resource.Type

	options any
	cache   *Cache
	parent  *Request
	watched map[string]watch
	deps    []requirement
	held    []*Asset
}

func newRequest(c *Cache, parent *Request, kind resource.Type, path string, options any) *Request {
	return &Request{
		Path:    path,
		Kind:    kind,
		options: options,
		cache:   c,
		parent:  parent,
		watched: make(map[string]watch),
	}
}

// Options returns the loader specific parameters of this load
func (r *Request) Options() any { return r.options }

// Cache returns the cache running the load
func (r *Request) Cache() *Cache { return r.cache }

// FS returns the filesystem assets are read from
func (r *Request) FS() fs.FS { return r.cache.fsys }

// ReadFile reads the file at Path and watches it for changes
func (r *Request) ReadFile() ([]byte, error) {
	return r.ReadFileAt(r.Path)
}

// ReadFileAt reads another file on behalf of this asset and watches it
func (r *Request) ReadFileAt(name string) ([]byte, error) {
	name = cleanPath(name)
	r.Watch(name)
	data, err := fs.ReadFile(r.cache.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Watch records the current modification time of name so that a later
// change to it reloads this asset.
func (r *Request) Watch(name string) {
	name = cleanPath(name)
	info, err := fs.Stat(r.cache.fsys, name)
	if err != nil {
		r.watched[name] = watch{}
		return
	}
	r.watched[name] = watch{mod: info.ModTime(), known: true}
}

// Require loads another asset through the cache and declares that this one
// depends on it. The edge is committed once this asset has its handle. The
// returned reference belongs to the caller, normally the payload being built;
// if the load fails, references obtained here are released by the cache.
func (r *Request) Require(kind resource.Type, path string, dep dependency.Kind) (*Asset, error) {
	return r.RequireWith(kind, path, dep, Params{})
}

// RequireWith is Require with explicit load parameters for the dependency
func (r *Request) RequireWith(kind resource.Type, path string, dep dependency.Kind, params Params) (*Asset, error) {
	a, err := r.cache.load(r, kind, path, params)
	if err != nil {
		return nil, err
	}
	r.deps = append(r.deps, requirement{id: a.Handle().ID(), kind: dep, path: a.Path()})
	r.held = append(r.held, a)
	return a, nil
}

// releaseHeld drops references taken through Require after a failed load
func (r *Request) releaseHeld() {
	for _, a := range r.held {
		_ = a.Release()
	}
	r.held = nil
}

// chain reports whether path is already being loaded further up this request
func (r *Request) chain(path string) bool {
	for p := r; p != nil; p = p.parent {
		if p.Path == path {
			return true
		}
	}
	return false
}
