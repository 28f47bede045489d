package graphics

import (
	"errors"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

const TextVertexSource = `#version 410 core
layout(location = 0) in vec4 vertex;
out vec2 TexCoords;

uniform mat4 projection;

void main() {
	gl_Position = projection * vec4(vertex.xy, 0.0, 1.0);
	TexCoords = vertex.zw;
}
`

const TextFragmentSource = `#version 410 core
in vec2 TexCoords;
out vec4 color;

uniform sampler2D text;
uniform vec3 textColor;

void main() {
	color = vec4(textColor, texture(text, TexCoords).r);
}
`

// TextRenderer draws strings from a font atlas in screen pixels
type TextRenderer struct {
	font       *Font
	shader     *Shader
	projection mgl32.Mat4
	vao        uint32
	vbo        uint32
	tracker    *Tracker
}

// NewTextRenderer creates the vertex objects for drawing text on a
// width x height screen. It needs a current GL context.
func NewTextRenderer(font *Font, shader *Shader, width, height int, tracker *Tracker) (*TextRenderer, error) {
	if font == nil || len(font.Glyphs) == 0 {
		return nil, errors.New("graphics: text renderer needs a baked font")
	}
	if shader == nil {
		return nil, errors.New("graphics: text renderer needs a shader")
	}
	tr := &TextRenderer{
		font:       font,
		shader:     shader,
		projection: mgl32.Ortho(0, float32(width), float32(height), 0, 0, 1),
		tracker:    tracker,
	}
	gl.GenVertexArrays(1, &tr.vao)
	gl.GenBuffers(1, &tr.vbo)
	gl.BindVertexArray(tr.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, tr.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 256*6*4*4, nil, gl.DYNAMIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 4, gl.FLOAT, false, 4*4, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	tracker.Track(ObjectVertexArray, tr.vao, "text")
	tracker.Track(ObjectBuffer, tr.vbo, "text")
	return tr, nil
}

// Render draws lines starting at (x, y), each lineStep pixels below the last
func (tr *TextRenderer) Render(lines []string, x, y, lineStep, scale float32, color mgl32.Vec3) error {
	var vertices []float32
	for _, line := range lines {
		vertices = append(vertices, glyphQuads(tr.font, line, x, y, scale)...)
		y += lineStep
	}
	if len(vertices) == 0 {
		return nil
	}

	if err := tr.shader.Use(); err != nil {
		return err
	}
	tr.shader.SetVector3("textColor", color)
	tr.shader.SetMatrix4("projection", tr.projection)
	tr.shader.SetInt("text", 0)

	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tr.font.Upload())
	gl.BindVertexArray(tr.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, tr.vbo)

	size := len(vertices) * 4
	gl.BufferData(gl.ARRAY_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, size, gl.Ptr(vertices))
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(vertices)/4))

	gl.BindVertexArray(0)
	gl.Disable(gl.BLEND)
	gl.Enable(gl.DEPTH_TEST)
	return nil
}

// Close deletes the vertex objects. The font and shader belong to the caller.
func (tr *TextRenderer) Close() error {
	if tr.vbo != 0 {
		gl.DeleteBuffers(1, &tr.vbo)
		tr.tracker.Untrack(ObjectBuffer, tr.vbo)
		tr.vbo = 0
	}
	if tr.vao != 0 {
		gl.DeleteVertexArrays(1, &tr.vao)
		tr.tracker.Untrack(ObjectVertexArray, tr.vao)
		tr.vao = 0
	}
	return nil
}

// glyphQuads builds two triangles per glyph, four floats per vertex:
// screen x, screen y, atlas u, atlas v.
func glyphQuads(f *Font, text string, x, y, scale float32) []float32 {
	atlasW := float32(f.Atlas.Rect.Dx())
	atlasH := float32(f.Atlas.Rect.Dy())

	out := make([]float32, 0, len(text)*6*4)
	for _, r := range text {
		g, ok := f.Glyphs[r]
		if !ok {
			x += float32(f.Glyphs[' '].Advance) * scale
			continue
		}
		if g.Width > 0 && g.Height > 0 {
			xPos := x + g.BearingX*scale
			yPos := y - g.BearingY*scale
			w, h := g.Width*scale, g.Height*scale
			u, v := g.AtlasX/atlasW, g.AtlasY/atlasH
			du, dv := g.Width/atlasW, g.Height/atlasH

			out = append(out,
				xPos, yPos+h, u, v+dv,
				xPos, yPos, u, v,
				xPos+w, yPos, u+du, v,

				xPos, yPos+h, u, v+dv,
				xPos+w, yPos, u+du, v,
				xPos+w, yPos+h, u+du, v+dv,
			)
		}
		x += float32(g.Advance) * scale
	}
	return out
}
