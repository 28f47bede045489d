package graphics

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
	"github.com/Tfc538/SilicaEngine-sub000/internal/dependency"
	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

type materialFile struct {
	Shader   string             `json:"shader"`
	Vertex   string             `json:"vertex"`
	Fragment string             `json:"fragment"`
	Color    *[4]float32        `json:"color"`
	Textures []materialTextureF `json:"textures"`
}

type materialTextureF struct {
	Uniform  string `json:"uniform"`
	Path     string `json:"path"`
	Optional bool   `json:"optional"`
	Filter   string `json:"filter"`
	Wrap     string `json:"wrap"`
}

// MaterialTexture binds one texture asset to a sampler uniform
type MaterialTexture struct {
	Uniform string
	Unit    uint32
	Asset   *assets.Asset
	// Fallback is set when an optional texture was replaced by the checkerboard
	Fallback bool
}

// Material is a shader, a tint and a set of textures. It owns a reference
// to each of them and releases them on Close. Bind resolves every part
// through the registry so a hot reloaded shader or texture is picked up
// without reloading the material.
type Material struct {
	Name     string
	Shader   *assets.Asset
	Color    mgl32.Vec4
	Textures []MaterialTexture

	registry *resource.Registry
}

// CurrentShader returns the live version of the material's shader
func (m *Material) CurrentShader() (*Shader, bool) {
	return resource.Resolve[*Shader](m.registry, m.Shader.Handle())
}

// CurrentTexture returns the live version of the i-th texture
func (m *Material) CurrentTexture(i int) (*Texture, bool) {
	if i < 0 || i >= len(m.Textures) {
		return nil, false
	}
	return resource.Resolve[*Texture](m.registry, m.Textures[i].Asset.Handle())
}

// Bind activates the shader, sets the tint and binds every texture. It
// needs a current GL context.
func (m *Material) Bind() error {
	shader, ok := m.CurrentShader()
	if !ok {
		return fmt.Errorf("material %s: shader %s is gone", m.Name, m.Shader.Path())
	}
	if err := shader.Use(); err != nil {
		return err
	}
	shader.SetVector4(UniformColor, m.Color)
	for i, t := range m.Textures {
		tex, ok := m.CurrentTexture(i)
		if !ok {
			return fmt.Errorf("material %s: texture %s is gone", m.Name, t.Asset.Path())
		}
		tex.Bind(t.Unit)
		shader.SetInt(t.Uniform, int32(t.Unit))
	}
	return nil
}

// Close releases the shader and textures
func (m *Material) Close() error {
	err := m.Shader.Release()
	for _, t := range m.Textures {
		err = multierr.Append(err, t.Asset.Release())
	}
	return err
}

// MaterialLoader reads material JSON files. The shader and required
// textures are loaded through the cache as dependencies. An optional
// texture that fails to load is replaced by the checkerboard, and its path
// stays watched so the material reloads once the file shows up.
func MaterialLoader() assets.Loader {
	return assets.LoaderFunc(func(req *assets.Request) (any, error) {
		data, err := req.ReadFile()
		if err != nil {
			return nil, err
		}
		var file materialFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse material %s: %w", req.Path, err)
		}

		m := &Material{
			Name:     req.Path,
			Color:    mgl32.Vec4{1, 1, 1, 1},
			registry: req.Cache().Registry(),
		}
		if file.Color != nil {
			m.Color = mgl32.Vec4(*file.Color)
		}

		m.Shader, err = requireShader(req, file)
		if err != nil {
			return nil, err
		}

		for i, t := range file.Textures {
			if t.Path == "" {
				return nil, fmt.Errorf("material %s: texture %d has no path", req.Path, i)
			}
			uniform := t.Uniform
			if uniform == "" {
				uniform = UniformTexture
			}
			kind := dependency.Required
			if t.Optional {
				kind = dependency.Optional
			}
			params := assets.Params{Options: TextureParams{Filter: parseFilter(t.Filter), Wrap: parseWrap(t.Wrap)}}

			tex, err := req.RequireWith(resource.TypeTexture, t.Path, kind, params)
			fallback := false
			if err != nil {
				if !t.Optional || errors.Is(err, assets.ErrCircularLoad) {
					return nil, err
				}
				req.Watch(t.Path)
				tex, err = req.Require(resource.TypeTexture, DefaultCheckerboard, dependency.Optional)
				if err != nil {
					return nil, err
				}
				fallback = true
			}
			m.Textures = append(m.Textures, MaterialTexture{
				Uniform:  uniform,
				Unit:     uint32(i),
				Asset:    tex,
				Fallback: fallback,
			})
		}
		return m, nil
	})
}

func requireShader(req *assets.Request, file materialFile) (*assets.Asset, error) {
	if file.Vertex != "" || file.Fragment != "" {
		name := file.Shader
		if name == "" {
			name = file.Vertex + "+" + file.Fragment
		}
		return req.RequireWith(resource.TypeShader, name, dependency.Required, assets.Params{
			Options: ShaderParams{VertexPath: file.Vertex, FragmentPath: file.Fragment},
		})
	}
	name := file.Shader
	if name == "" {
		name = DefaultShader
	}
	return req.Require(resource.TypeShader, name, dependency.Required)
}

func parseFilter(s string) Filter {
	if s == "linear" {
		return Linear
	}
	return Nearest
}

func parseWrap(s string) Wrap {
	if s == "repeat" {
		return Repeat
	}
	return ClampToEdge
}
