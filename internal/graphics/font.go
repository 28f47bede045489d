package graphics

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/go-gl/gl/v4.1-core/gl"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
)

const (
	defaultFontPixels = 16
	atlasWidth        = 512
	glyphPadding      = 1
)

// FontParams are the loader options for fonts
type FontParams struct {
	// Pixels is the glyph size, 16 when zero
	Pixels int
	// First and Last bound the baked rune range, printable ASCII when zero
	First, Last rune
}

// Glyph describes one character's placement in the atlas and its metrics
type Glyph struct {
	// Pixel coordinates of the glyph in the atlas (top-left origin)
	AtlasX, AtlasY float32
	Width, Height  float32
	// Offset from the pen position on the baseline
	BearingX, BearingY float32
	Advance            int
}

// Font is a glyph atlas baked on the CPU and uploaded as a single-channel
// texture on first use.
type Font struct {
	Pixels int
	Atlas  *image.Alpha
	Glyphs map[rune]Glyph

	id      uint32
	tracker *Tracker
}

// BakeFont parses a TrueType or OpenType font and packs the requested runes
// into an atlas.
func BakeFont(data []byte, params FontParams, tracker *Tracker) (*Font, error) {
	if params.Pixels <= 0 {
		params.Pixels = defaultFontPixels
	}
	if params.First == 0 && params.Last == 0 {
		params.First, params.Last = 32, 126
	}
	if params.Last < params.First {
		return nil, fmt.Errorf("bake font: empty rune range %d..%d", params.First, params.Last)
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(params.Pixels), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	defer func() { _ = face.Close() }()

	// First pass: row-pack to find the atlas height
	offsetX, offsetY, rowHeight := 0, 0, 0
	for r := params.First; r <= params.Last; r++ {
		dr, mask, _, _, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok || mask == nil || dr.Empty() {
			continue
		}
		if offsetX+dr.Dx() > atlasWidth {
			offsetX = 0
			offsetY += rowHeight + glyphPadding
			rowHeight = 0
		}
		offsetX += dr.Dx() + glyphPadding
		rowHeight = max(rowHeight, dr.Dy())
	}
	atlasHeight := nextPowerOfTwo(offsetY + rowHeight + glyphPadding)

	atlas := image.NewAlpha(image.Rect(0, 0, atlasWidth, atlasHeight))
	glyphs := make(map[rune]Glyph)

	// Second pass: draw each glyph and record its metrics
	offsetX, offsetY, rowHeight = 0, 0, 0
	for r := params.First; r <= params.Last; r++ {
		dr, mask, maskp, advance, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok {
			continue
		}
		g := Glyph{
			BearingX: float32(dr.Min.X),
			BearingY: float32(-dr.Min.Y),
			Advance:  int(math.Round(float64(advance) / 64.0)),
		}
		if mask == nil || dr.Empty() {
			// space and other blank glyphs only advance the pen
			glyphs[r] = g
			continue
		}
		gw, gh := dr.Dx(), dr.Dy()
		if offsetX+gw > atlasWidth {
			offsetX = 0
			offsetY += rowHeight + glyphPadding
			rowHeight = 0
		}
		draw.Draw(atlas, image.Rect(offsetX, offsetY, offsetX+gw, offsetY+gh), mask, maskp, draw.Src)

		g.AtlasX, g.AtlasY = float32(offsetX), float32(offsetY)
		g.Width, g.Height = float32(gw), float32(gh)
		glyphs[r] = g

		offsetX += gw + glyphPadding
		rowHeight = max(rowHeight, gh)
	}
	if len(glyphs) == 0 {
		return nil, fmt.Errorf("bake font: no glyphs in range %d..%d", params.First, params.Last)
	}

	return &Font{Pixels: params.Pixels, Atlas: atlas, Glyphs: glyphs, tracker: tracker}, nil
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Measure returns the width and height in pixels text occupies at scale.
// Missing glyphs advance like a space.
func (f *Font) Measure(text string, scale float32) (float32, float32) {
	var width, height float32
	for _, r := range text {
		g, ok := f.Glyphs[r]
		if !ok {
			width += float32(f.Glyphs[' '].Advance) * scale
			continue
		}
		width += float32(g.Advance) * scale
		height = max(height, g.Height*scale)
	}
	return width, height
}

// Size reports the atlas memory held on the CPU side
func (f *Font) Size() int64 { return int64(len(f.Atlas.Pix)) }

// Upload creates the GL texture for the atlas and returns its name
func (f *Font) Upload() uint32 {
	if f.id != 0 {
		return f.id
	}
	w, h := f.Atlas.Rect.Dx(), f.Atlas.Rect.Dy()
	gl.GenTextures(1, &f.id)
	gl.BindTexture(gl.TEXTURE_2D, f.id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RED, int32(w), int32(h), 0, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(f.Atlas.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	f.tracker.Track(ObjectTexture, f.id, fmt.Sprintf("font atlas %dpx", f.Pixels))
	return f.id
}

// Close deletes the atlas texture if one was created
func (f *Font) Close() error {
	if f.id == 0 {
		return nil
	}
	gl.DeleteTextures(1, &f.id)
	f.tracker.Untrack(ObjectTexture, f.id)
	f.id = 0
	return nil
}

// FontLoader bakes font files. Request options may be FontParams.
func FontLoader(tracker *Tracker) assets.Loader {
	return assets.LoaderFunc(func(req *assets.Request) (any, error) {
		data, err := req.ReadFile()
		if err != nil {
			return nil, err
		}
		params, _ := req.Options().(FontParams)
		return BakeFont(data, params, tracker)
	})
}
