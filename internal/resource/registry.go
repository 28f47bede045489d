package resource

import (
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// SlotInfo describes a registry slot without exposing its payload
type SlotInfo struct {
	Handle     Handle
	Name       string
	Created    time.Time
	LastAccess time.Time
}

type slot struct {
	payload    any
	typ        Type
	name       string
	created    time.Time
	lastAccess time.Time
}

// Registry maps generated IDs to payloads. Every method is safe for
// concurrent use and reports failure through zero values, never panics.
type Registry struct {
	mu     sync.Mutex
	slots  map[ID]*slot
	nextID atomic.Uint64

	clock clock.Clock
	log   *zap.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger used for registry events
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock sets the clock used for slot timestamps
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		slots: make(map[ID]*slot),
		clock: clock.New(),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) generateID() ID {
	return ID(r.nextID.Add(1))
}

// IsNil reports whether v is nil, including a nil pointer, map, slice,
// func or channel stored in the interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// Register stores payload under a fresh ID. A nil payload, typed or not,
// yields an invalid handle.
func (r *Registry) Register(payload any, typ Type, name string) Handle {
	if IsNil(payload) {
		return Handle{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.generateID()
	now := r.clock.Now()
	r.slots[id] = &slot{
		payload:    payload,
		typ:        typ,
		name:       name,
		created:    now,
		lastAccess: now,
	}

	r.log.Debug("resource registered",
		zap.Uint64("id", uint64(id)),
		zap.Stringer("type", typ),
		zap.String("name", name))
	return Handle{id: id, typ: typ}
}

// lookup returns the slot for h if it exists and its type matches.
// Callers must hold r.mu.
func (r *Registry) lookup(h Handle) *slot {
	if !h.IsValid() {
		return nil
	}
	s, ok := r.slots[h.id]
	if !ok || s.typ != h.typ {
		return nil
	}
	return s
}

// Get returns the current payload behind h, or nil when h is invalid,
// unknown, or of the wrong type.
func (r *Registry) Get(h Handle) any {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookup(h)
	if s == nil {
		return nil
	}
	s.lastAccess = r.clock.Now()
	return s.payload
}

// Resolve is the typed form of Get. A payload of another Go type is
// treated the same as a missing one.
func Resolve[T any](r *Registry, h Handle) (T, bool) {
	v, ok := r.Get(h).(T)
	return v, ok
}

// Update replaces the payload behind h while keeping its ID and type.
// This is the hot reload path.
func (r *Registry) Update(h Handle, payload any) bool {
	if IsNil(payload) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookup(h)
	if s == nil {
		return false
	}
	s.payload = payload
	s.lastAccess = r.clock.Now()
	return true
}

// Remove erases the slot behind h
func (r *Registry) Remove(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lookup(h) == nil {
		return false
	}
	delete(r.slots, h.id)
	return true
}

// IsValid reports whether h refers to a live slot of the right type
func (r *Registry) IsValid(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(h) != nil
}

// Name returns the debug name of the slot behind h
func (r *Registry) Name(h Handle) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.lookup(h); s != nil {
		return s.name
	}
	return ""
}

// Info returns slot metadata for h
func (r *Registry) Info(h Handle) (SlotInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookup(h)
	if s == nil {
		return SlotInfo{}, false
	}
	return SlotInfo{
		Handle:     h,
		Name:       s.name,
		Created:    s.created,
		LastAccess: s.lastAccess,
	}, true
}

// Contains reports whether id is live, regardless of type
func (r *Registry) Contains(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.slots[id]
	return ok
}

// NameOf returns the debug name registered for id
func (r *Registry) NameOf(id ID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[id]; ok {
		return s.name
	}
	return ""
}

// Handles returns every live handle of the given type, ordered by ID
func (r *Registry) Handles(typ Type) []Handle {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.slots))
	for id, s := range r.slots {
		if s.typ == typ {
			handles = append(handles, Handle{id: id, typ: typ})
		}
	}
	r.mu.Unlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i].id < handles[j].id })
	return handles
}

// Count returns the number of live slots of the given type
func (r *Registry) Count(typ Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.slots {
		if s.typ == typ {
			n++
		}
	}
	return n
}

// Len returns the total number of live slots
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Clear drops every slot and restarts ID generation. Only meant for shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Info("clearing resource registry", zap.Int("resources", len(r.slots)))
	r.slots = make(map[ID]*slot)
	r.nextID.Store(0)
}
