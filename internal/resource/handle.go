package resource

import "fmt"

// ID identifies a registered resource. Zero is never handed out.
type ID uint64

// InvalidID is the reserved null resource ID
const InvalidID ID = 0

// Type tags the payload stored behind a handle
type Type uint16

const (
	TypeUnknown Type = iota
	TypeTexture
	TypeShader
	TypeMesh
	TypeAudio
	TypeMaterial
	TypeAnimation
	TypeFont
	TypeModel
)

var typeNames = [...]string{
	TypeUnknown:   "unknown",
	TypeTexture:   "texture",
	TypeShader:    "shader",
	TypeMesh:      "mesh",
	TypeAudio:     "audio",
	TypeMaterial:  "material",
	TypeAnimation: "animation",
	TypeFont:      "font",
	TypeModel:     "model",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint16(t))
}

// Handle is a stable reference to a registry slot. It owns nothing; the
// payload behind it can be swapped by Registry.Update without the handle
// changing, which is what keeps long-lived references valid across reloads.
type Handle struct {
	id  ID
	typ Type
}

// NewHandle builds a handle from its parts
func NewHandle(id ID, typ Type) Handle {
	return Handle{id: id, typ: typ}
}

// IsValid reports whether the handle carries a non-null ID
func (h Handle) IsValid() bool { return h.id != InvalidID }

func (h Handle) ID() ID { return h.id }

func (h Handle) Type() Type { return h.typ }

// Less orders handles by type, then by ID
func (h Handle) Less(o Handle) bool {
	if h.typ != o.typ {
		return h.typ < o.typ
	}
	return h.id < o.id
}

func (h Handle) String() string {
	if !h.IsValid() {
		return "handle(invalid)"
	}
	return fmt.Sprintf("%s#%d", h.typ, h.id)
}
