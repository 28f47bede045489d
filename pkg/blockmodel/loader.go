package blockmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
	"github.com/Tfc538/SilicaEngine-sub000/internal/dependency"
	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

// Kind is the resource type models and block states are cached under
const Kind = resource.TypeModel

const maxTextureIndirection = 10

// ModelPath maps a model name such as "block/stone" to its asset path.
// Bare names are taken to be block models and namespaces are dropped.
func ModelPath(name string) string {
	name = stripNamespace(name)
	if !strings.Contains(name, "/") {
		name = "block/" + name
	}
	return path.Join("models", name+".json")
}

// TexturePath maps a texture name such as "block/stone" to its asset path
func TexturePath(name string) string {
	return path.Join("textures", stripNamespace(name)+".png")
}

// BlockStatePath maps a block name to its block state asset path
func BlockStatePath(name string) string {
	return path.Join("blockstates", stripNamespace(name)+".json")
}

func stripNamespace(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Loader reads model and block state JSON. Parents and block state
// variants are loaded through the cache as required dependencies, resolved
// face textures as optional ones.
func Loader() assets.Loader {
	return assets.LoaderFunc(func(req *assets.Request) (any, error) {
		if strings.HasPrefix(req.Path, "blockstates/") {
			return loadBlockState(req)
		}
		return loadModel(req)
	})
}

// Register installs Loader for Kind
func Register(c *assets.Cache) {
	c.RegisterLoader(Kind, Loader())
}

// LoadModel loads a model by name through c
func LoadModel(c *assets.Cache, name string) (*assets.Asset, error) {
	return c.Load(Kind, ModelPath(name), assets.Params{})
}

// LoadBlockState loads a block state by name through c
func LoadBlockState(c *assets.Cache, name string) (*assets.Asset, error) {
	return c.Load(Kind, BlockStatePath(name), assets.Params{})
}

func loadModel(req *assets.Request) (any, error) {
	data, err := req.ReadFile()
	if err != nil {
		return nil, fmt.Errorf("could not read model file: %w", err)
	}

	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("could not unmarshal model json: %w", err)
	}
	if model.Textures == nil {
		model.Textures = make(map[string]string)
	}

	if model.Parent != "" && !strings.HasPrefix(stripNamespace(model.Parent), "builtin/") {
		parentAsset, err := req.Require(Kind, ModelPath(model.Parent), dependency.Required)
		if err != nil {
			return nil, fmt.Errorf("could not load parent model '%s': %w", model.Parent, err)
		}
		model.parent = parentAsset
		parent, ok := assets.As[*Model](parentAsset)
		if !ok {
			return nil, fmt.Errorf("parent '%s' is not a model", model.Parent)
		}
		model.inherit(parent)
	}

	model.resolveTextures()
	if err := model.requireTextures(req); err != nil {
		return nil, err
	}
	return &model, nil
}

// inherit fills in what the model leaves unset from its parent. Elements
// are deep copied so resolving this model's textures cannot touch the
// parent's.
func (m *Model) inherit(parent *Model) {
	if m.AmbientOcclusion == nil {
		m.AmbientOcclusion = parent.AmbientOcclusion
	}
	if len(m.Elements) == 0 {
		m.Elements = cloneElements(parent.Elements)
	}
	if len(m.Display) == 0 {
		m.Display = parent.Display
	}
	for key, val := range parent.Textures {
		if _, ok := m.Textures[key]; !ok {
			m.Textures[key] = val
		}
	}
}

func cloneElements(in []Element) []Element {
	out := make([]Element, len(in))
	for i, e := range in {
		out[i] = e
		out[i].Faces = make(map[string]Face, len(e.Faces))
		for name, f := range e.Faces {
			out[i].Faces[name] = f
		}
	}
	return out
}

func (m *Model) resolveTextures() {
	for i := range m.Elements {
		for faceName, face := range m.Elements[i].Faces {
			resolved := m.ResolveTexture(face.Texture)
			if resolved != face.Texture {
				face.Texture = resolved
				m.Elements[i].Faces[faceName] = face
			}
		}
	}
}

// ResolveTexture follows "#name" references through the model's texture
// variables. Unresolvable references are returned as they stand.
func (m *Model) ResolveTexture(texture string) string {
	for i := 0; i < maxTextureIndirection && strings.HasPrefix(texture, "#"); i++ {
		resolved, ok := m.Textures[strings.TrimPrefix(texture, "#")]
		if !ok {
			break
		}
		texture = resolved
	}
	return texture
}

// requireTextures loads every concrete texture the faces use. Missing
// files are watched, so the model reloads once they appear.
func (m *Model) requireTextures(req *assets.Request) error {
	names := make(map[string]struct{})
	for _, e := range m.Elements {
		for _, f := range e.Faces {
			if f.Texture != "" && !strings.HasPrefix(f.Texture, "#") {
				names[f.Texture] = struct{}{}
			}
		}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	m.textures = make(map[string]*assets.Asset, len(sorted))
	for _, name := range sorted {
		p := TexturePath(name)
		a, err := req.Require(resource.TypeTexture, p, dependency.Optional)
		switch {
		case err == nil:
			m.textures[name] = a
		case errors.Is(err, assets.ErrCircularLoad):
			return err
		default:
			req.Watch(p)
		}
	}
	return nil
}

// TextureAsset returns the loaded texture for a resolved texture name
func (m *Model) TextureAsset(name string) (*assets.Asset, bool) {
	a, ok := m.textures[name]
	return a, ok
}

// MissingTextures lists face textures that could not be loaded
func (m *Model) MissingTextures() []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range m.Elements {
		for _, f := range e.Faces {
			if f.Texture == "" || seen[f.Texture] {
				continue
			}
			seen[f.Texture] = true
			if _, ok := m.textures[f.Texture]; !ok {
				out = append(out, f.Texture)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Close releases the parent and texture references
func (m *Model) Close() error {
	err := m.parent.Release()
	m.parent = nil
	for name, a := range m.textures {
		err = multierr.Append(err, a.Release())
		delete(m.textures, name)
	}
	return err
}

func loadBlockState(req *assets.Request) (any, error) {
	data, err := req.ReadFile()
	if err != nil {
		return nil, fmt.Errorf("could not read blockstate file: %w", err)
	}

	var state BlockState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("could not unmarshal blockstate json: %w", err)
	}

	state.models = make(map[string]*assets.Asset)
	for _, key := range state.VariantKeys() {
		for _, v := range state.Variants[key] {
			if _, ok := state.models[v.Model]; ok {
				continue
			}
			a, err := req.Require(Kind, ModelPath(v.Model), dependency.Required)
			if err != nil {
				return nil, fmt.Errorf("variant %q: %w", key, err)
			}
			state.models[v.Model] = a
		}
	}
	return &state, nil
}
