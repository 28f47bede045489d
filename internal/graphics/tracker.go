package graphics

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ObjectKind names a class of GL object
type ObjectKind string

const (
	ObjectTexture     ObjectKind = "texture"
	ObjectProgram     ObjectKind = "program"
	ObjectBuffer      ObjectKind = "buffer"
	ObjectVertexArray ObjectKind = "vertex_array"
)

type objectKey struct {
	kind ObjectKind
	id   uint32
}

// Leak is a GL object that was created and never deleted
type Leak struct {
	Kind     ObjectKind
	ID       uint32
	Label    string
	Location string
}

// Tracker records live GL objects so that anything not deleted by shutdown
// can be reported. A nil *Tracker ignores every call.
type Tracker struct {
	mu   sync.Mutex
	live map[objectKey]Leak
	log  *zap.Logger
}

func NewTracker(log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{live: make(map[objectKey]Leak), log: log}
}

// Track records a new object together with the location of the code that
// created it.
func (t *Tracker) Track(kind ObjectKind, id uint32, label string) {
	if t == nil || id == 0 {
		return
	}
	loc := "unknown"
	if _, file, line, ok := runtime.Caller(1); ok {
		loc = fmt.Sprintf("%s:%d", file, line)
	}
	t.mu.Lock()
	t.live[objectKey{kind, id}] = Leak{Kind: kind, ID: id, Label: label, Location: loc}
	t.mu.Unlock()
}

// Untrack forgets a deleted object. It reports false for unknown objects.
func (t *Tracker) Untrack(kind ObjectKind, id uint32) bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	k := objectKey{kind, id}
	if _, ok := t.live[k]; !ok {
		return false
	}
	delete(t.live, k)
	return true
}

// Live returns the number of tracked objects of kind, or of every kind for ""
func (t *Tracker) Live(kind ObjectKind) int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if kind == "" {
		return len(t.live)
	}
	n := 0
	for k := range t.live {
		if k.kind == kind {
			n++
		}
	}
	return n
}

// Leaks lists the objects still alive, ordered by kind and ID
func (t *Tracker) Leaks() []Leak {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	out := make([]Leak, 0, len(t.live))
	for _, l := range t.live {
		out = append(out, l)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ReportLeaks logs every live object and returns how many there were
func (t *Tracker) ReportLeaks() int {
	leaks := t.Leaks()
	for _, l := range leaks {
		t.log.Warn("GL object leaked",
			zap.String("kind", string(l.Kind)),
			zap.Uint32("id", l.ID),
			zap.String("label", l.Label),
			zap.String("created_at", l.Location))
	}
	if len(leaks) == 0 && t != nil {
		t.log.Debug("no GL objects leaked")
	}
	return len(leaks)
}
