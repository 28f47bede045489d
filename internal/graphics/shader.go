package graphics

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
)

// Uniform and attribute names shared by the built-in shaders
const (
	UniformViewProjection = "u_ViewProjection"
	UniformModel          = "u_Model"
	UniformTexture        = "u_Texture"
	UniformColor          = "u_Color"

	AttribPosition = 0
	AttribTexCoord = 1
)

// DefaultVertexSource and DefaultFragmentSource make up the fallback shader
const DefaultVertexSource = `#version 410 core
layout(location = 0) in vec3 aPos;
layout(location = 1) in vec2 aTexCoord;

uniform mat4 u_ViewProjection;
uniform mat4 u_Model;

out vec2 vTexCoord;

void main() {
	vTexCoord = aTexCoord;
	gl_Position = u_ViewProjection * u_Model * vec4(aPos, 1.0);
}
`

const DefaultFragmentSource = `#version 410 core
in vec2 vTexCoord;

uniform sampler2D u_Texture;
uniform vec4 u_Color;

out vec4 FragColor;

void main() {
	FragColor = texture(u_Texture, vTexCoord) * u_Color;
}
`

var ErrNoShaderStage = errors.New("graphics: shader source is missing a stage")

// ShaderParams are the loader options for shaders. With both paths set the
// stages are read from two files and the asset path is only its name;
// otherwise the asset path holds a combined source.
type ShaderParams struct {
	VertexPath   string
	FragmentPath string
}

// Shader holds GLSL sources and the program linked from them on first use
type Shader struct {
	Name     string
	Vertex   string
	Fragment string

	id      uint32
	tracker *Tracker
}

func NewShader(name, vertex, fragment string, tracker *Tracker) (*Shader, error) {
	if strings.TrimSpace(vertex) == "" || strings.TrimSpace(fragment) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoShaderStage, name)
	}
	return &Shader{Name: name, Vertex: vertex, Fragment: fragment, tracker: tracker}, nil
}

// ParseCombinedShader splits a single file holding both stages, each
// introduced by a "#type vertex" or "#type fragment" line.
func ParseCombinedShader(src string) (vertex, fragment string, err error) {
	var (
		stages  = map[string]*strings.Builder{}
		current *strings.Builder
	)
	sc := bufio.NewScanner(strings.NewReader(src))
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if rest, ok := strings.CutPrefix(strings.TrimSpace(text), "#type"); ok {
			stage := strings.ToLower(strings.TrimSpace(rest))
			switch stage {
			case "vertex", "fragment":
			case "pixel":
				stage = "fragment"
			default:
				return "", "", fmt.Errorf("line %d: unknown shader stage %q", line, stage)
			}
			current = &strings.Builder{}
			stages[stage] = current
			continue
		}
		if current != nil {
			current.WriteString(text)
			current.WriteByte('\n')
		}
	}
	if err := sc.Err(); err != nil {
		return "", "", err
	}
	v, f := stages["vertex"], stages["fragment"]
	if v == nil || f == nil {
		return "", "", ErrNoShaderStage
	}
	return v.String(), f.String(), nil
}

// Program returns the GL program name, 0 before Compile
func (s *Shader) Program() uint32 { return s.id }

// Compile links the program. It needs a current GL context and does
// nothing when already compiled.
func (s *Shader) Compile() error {
	if s.id != 0 {
		return nil
	}
	program, err := compileProgram(s.Vertex, s.Fragment)
	if err != nil {
		return fmt.Errorf("shader %s: %w", s.Name, err)
	}
	s.id = program
	s.tracker.Track(ObjectProgram, s.id, s.Name)
	return nil
}

// Use compiles if needed and activates the program
func (s *Shader) Use() error {
	if err := s.Compile(); err != nil {
		return err
	}
	gl.UseProgram(s.id)
	return nil
}

func (s *Shader) location(name string) int32 {
	return gl.GetUniformLocation(s.id, gl.Str(name+"\x00"))
}

func (s *Shader) SetInt(name string, value int32) {
	gl.Uniform1i(s.location(name), value)
}

func (s *Shader) SetFloat(name string, value float32) {
	gl.Uniform1f(s.location(name), value)
}

func (s *Shader) SetVector3(name string, v mgl32.Vec3) {
	gl.Uniform3f(s.location(name), v.X(), v.Y(), v.Z())
}

func (s *Shader) SetVector4(name string, v mgl32.Vec4) {
	gl.Uniform4f(s.location(name), v.X(), v.Y(), v.Z(), v.W())
}

func (s *Shader) SetMatrix4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(s.location(name), 1, false, &m[0])
}

// Close deletes the program if one was linked
func (s *Shader) Close() error {
	if s.id == 0 {
		return nil
	}
	gl.DeleteProgram(s.id)
	s.tracker.Untrack(ObjectProgram, s.id)
	s.id = 0
	return nil
}

// ShaderLoader reads either a stage pair named by ShaderParams or a
// combined source file. Every file read is watched for hot reload.
func ShaderLoader(tracker *Tracker) assets.Loader {
	return assets.LoaderFunc(func(req *assets.Request) (any, error) {
		if p, ok := req.Options().(ShaderParams); ok && p.VertexPath != "" && p.FragmentPath != "" {
			vertex, err := req.ReadFileAt(p.VertexPath)
			if err != nil {
				return nil, err
			}
			fragment, err := req.ReadFileAt(p.FragmentPath)
			if err != nil {
				return nil, err
			}
			return NewShader(req.Path, string(vertex), string(fragment), tracker)
		}

		src, err := req.ReadFile()
		if err != nil {
			return nil, err
		}
		vertex, fragment, err := ParseCombinedShader(string(src))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", req.Path, err)
		}
		return NewShader(req.Path, vertex, fragment, tracker)
	})
}

func compileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertexShader, err := compileStage(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertexShader)
	fragmentShader, err := compileStage(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragmentShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return 0, fmt.Errorf("failed to link program: %v", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

func compileStage(source string, stage uint32) (uint32, error) {
	shader := gl.CreateShader(stage)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("failed to compile shader: %v", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}
