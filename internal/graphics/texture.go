package graphics

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/go-gl/gl/v4.1-core/gl"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
)

// Filter selects the texture sampling mode
type Filter int

const (
	Nearest Filter = iota
	Linear
)

// Wrap selects the texture addressing mode
type Wrap int

const (
	ClampToEdge Wrap = iota
	Repeat
)

// TextureParams are the loader options for textures
type TextureParams struct {
	Filter Filter
	Wrap   Wrap
	// MaxSize downscales larger images so neither side exceeds it. 0 keeps
	// the source size.
	MaxSize int
}

// Texture is a decoded RGBA image that is uploaded to GL on first use
type Texture struct {
	Image  *image.RGBA
	Params TextureParams

	id      uint32
	tracker *Tracker
}

// NewTexture wraps img, converting it to RGBA if needed
func NewTexture(img image.Image, params TextureParams, tracker *Tracker) *Texture {
	return &Texture{Image: toRGBA(img, params.MaxSize), Params: params, tracker: tracker}
}

// DecodeTexture decodes any registered image format
func DecodeTexture(data []byte, params TextureParams, tracker *Tracker) (*Texture, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decode image: empty %s image", format)
	}
	return NewTexture(img, params, tracker), nil
}

// NewSolidTexture returns a size x size texture of one colour
func NewSolidTexture(c color.RGBA, size int, tracker *Tracker) *Texture {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return &Texture{Image: img, Params: TextureParams{Filter: Nearest}, tracker: tracker}
}

// NewCheckerboard returns a size x size texture of alternating cells
func NewCheckerboard(size, cell int, a, b color.RGBA, tracker *Tracker) *Texture {
	if cell <= 0 {
		cell = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetRGBA(x, y, a)
			} else {
				img.SetRGBA(x, y, b)
			}
		}
	}
	return &Texture{Image: img, Params: TextureParams{Filter: Nearest, Wrap: Repeat}, tracker: tracker}
}

func toRGBA(img image.Image, maxSize int) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxSize > 0 && (w > maxSize || h > maxSize) {
		if w >= h {
			w, h = maxSize, max(1, h*maxSize/w)
		} else {
			w, h = max(1, w*maxSize/h), maxSize
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
		return dst
	}
	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

func (t *Texture) Width() int  { return t.Image.Rect.Dx() }
func (t *Texture) Height() int { return t.Image.Rect.Dy() }

// Size reports the pixel memory held on the CPU side
func (t *Texture) Size() int64 { return int64(len(t.Image.Pix)) }

// ID returns the GL texture name, 0 before Upload
func (t *Texture) ID() uint32 { return t.id }

// Upload creates the GL texture. It needs a current GL context and does
// nothing when already uploaded.
func (t *Texture) Upload() uint32 {
	if t.id != 0 {
		return t.id
	}
	filter, wrap := int32(gl.NEAREST), int32(gl.CLAMP_TO_EDGE)
	if t.Params.Filter == Linear {
		filter = gl.LINEAR
	}
	if t.Params.Wrap == Repeat {
		wrap = gl.REPEAT
	}

	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA,
		int32(t.Width()),
		int32(t.Height()),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(t.Image.Pix),
	)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	t.tracker.Track(ObjectTexture, t.id, fmt.Sprintf("%dx%d", t.Width(), t.Height()))
	return t.id
}

// Bind uploads if needed and binds the texture to unit
func (t *Texture) Bind(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, t.Upload())
}

// Close deletes the GL texture if one was created
func (t *Texture) Close() error {
	if t.id == 0 {
		return nil
	}
	gl.DeleteTextures(1, &t.id)
	t.tracker.Untrack(ObjectTexture, t.id)
	t.id = 0
	return nil
}

// TextureLoader decodes image files. Request options may be TextureParams.
func TextureLoader(tracker *Tracker) assets.Loader {
	return assets.LoaderFunc(func(req *assets.Request) (any, error) {
		data, err := req.ReadFile()
		if err != nil {
			return nil, err
		}
		params, _ := req.Options().(TextureParams)
		return DecodeTexture(data, params, tracker)
	})
}
