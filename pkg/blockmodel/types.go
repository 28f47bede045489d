package blockmodel

import (
	"encoding/json"
	"sort"

	"go.uber.org/multierr"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
)

// Model is a block or item model with its parent chain already merged in
type Model struct {
	Parent           string             `json:"parent"`
	AmbientOcclusion *bool              `json:"ambientocclusion"`
	Textures         map[string]string  `json:"textures"`
	Elements         []Element          `json:"elements"`
	Display          map[string]Display `json:"display"`
	Overrides        []Override         `json:"overrides"`

	parent   *assets.Asset
	textures map[string]*assets.Asset
}

type Element struct {
	From     [3]float32      `json:"from"`
	To       [3]float32      `json:"to"`
	Rotation *Rotation       `json:"rotation"`
	Shade    *bool           `json:"shade"`
	Faces    map[string]Face `json:"faces"`
}

type Rotation struct {
	Origin  [3]float32 `json:"origin"`
	Angle   float32    `json:"angle"`
	Axis    string     `json:"axis"`
	Rescale bool       `json:"rescale"`
}

type Face struct {
	UV        [4]float32 `json:"uv"`
	Texture   string     `json:"texture"`
	CullFace  string     `json:"cullface"`
	Rotation  int        `json:"rotation"`
	TintIndex *int       `json:"tintindex"`
}

type Display struct {
	Rotation    [3]float32 `json:"rotation"`
	Translation [3]float32 `json:"translation"`
	Scale       [3]float32 `json:"scale"`
}

type Override struct {
	Predicate map[string]float32 `json:"predicate"`
	Model     string             `json:"model"`
}

// BlockState defines the blockstate JSON structure. It maps variants of a block to their corresponding models.
type BlockState struct {
	// Variants is a map of variant names to a list of models.
	Variants map[string]BlockStateVariants `json:"variants"`

	models map[string]*assets.Asset
}

// VariantKeys returns the variant names in sorted order
func (b *BlockState) VariantKeys() []string {
	keys := make([]string, 0, len(b.Variants))
	for k := range b.Variants {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Models returns the loaded models of a variant, in declaration order
func (b *BlockState) Models(variant string) []*Model {
	var out []*Model
	for _, v := range b.Variants[variant] {
		if m, ok := assets.As[*Model](b.models[v.Model]); ok {
			out = append(out, m)
		}
	}
	return out
}

// Close releases the variant models
func (b *BlockState) Close() error {
	var err error
	for name, a := range b.models {
		err = multierr.Append(err, a.Release())
		delete(b.models, name)
	}
	return err
}

// BlockStateVariants is a custom type to handle the fact that the "variants" field can contain either a single object or an array of objects.
type BlockStateVariants []Variant

func (v *BlockStateVariants) UnmarshalJSON(data []byte) error {
	// First, try to unmarshal as an array
	var variants []Variant
	if err := json.Unmarshal(data, &variants); err == nil {
		*v = variants
		return nil
	}

	// If that fails, try to unmarshal as a single object
	var singleVariant Variant
	if err := json.Unmarshal(data, &singleVariant); err != nil {
		return err
	}

	*v = []Variant{singleVariant}
	return nil
}

type Variant struct {
	Model string `json:"model"`
}
