package graphics

import (
	"fmt"
	"image/color"

	"go.uber.org/multierr"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

// Paths of the built-in assets. They are pinned in the cache and never
// touch the filesystem.
const (
	DefaultWhite        = "builtin:white"
	DefaultBlack        = "builtin:black"
	DefaultCheckerboard = "builtin:checkerboard"
	DefaultShader       = "builtin:shader"
	DefaultTextShader   = "builtin:text-shader"
	DefaultFont         = "builtin:font"
)

// RegisterLoaders installs the texture, shader, font and material loaders
func RegisterLoaders(c *assets.Cache, tracker *Tracker) {
	c.RegisterLoader(resource.TypeTexture, TextureLoader(tracker))
	c.RegisterLoader(resource.TypeShader, ShaderLoader(tracker))
	c.RegisterLoader(resource.TypeFont, FontLoader(tracker))
	c.RegisterLoader(resource.TypeMaterial, MaterialLoader())
}

// RegisterDefaults puts the built-in textures, shaders and font into the cache
func RegisterDefaults(c *assets.Cache, tracker *Tracker) error {
	shader, err := NewShader(DefaultShader, DefaultVertexSource, DefaultFragmentSource, tracker)
	if err != nil {
		return err
	}
	text, err := NewShader(DefaultTextShader, TextVertexSource, TextFragmentSource, tracker)
	if err != nil {
		return err
	}
	font, err := BakeFont(goregular.TTF, FontParams{Pixels: defaultFontPixels}, tracker)
	if err != nil {
		return fmt.Errorf("bake default font: %w", err)
	}

	defaults := []struct {
		kind    resource.Type
		path    string
		payload any
	}{
		{resource.TypeTexture, DefaultWhite, NewSolidTexture(color.RGBA{255, 255, 255, 255}, 1, tracker)},
		{resource.TypeTexture, DefaultBlack, NewSolidTexture(color.RGBA{0, 0, 0, 255}, 1, tracker)},
		{resource.TypeTexture, DefaultCheckerboard, NewCheckerboard(256, 32,
			color.RGBA{255, 0, 255, 255}, color.RGBA{0, 0, 0, 255}, tracker)},
		{resource.TypeShader, DefaultShader, shader},
		{resource.TypeShader, DefaultTextShader, text},
		{resource.TypeFont, DefaultFont, font},
	}
	for _, d := range defaults {
		a, perr := c.Put(d.kind, d.path, d.payload)
		err = multierr.Append(err, perr)
		err = multierr.Append(err, a.Release())
	}
	return err
}
