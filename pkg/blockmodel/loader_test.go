package blockmodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
	"github.com/Tfc538/SilicaEngine-sub000/internal/dependency"
	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

var assetsDir string

func newCache(t *testing.T, dir string) *assets.Cache {
	t.Helper()
	c := assets.New(os.DirFS(dir))
	Register(c)
	c.RegisterLoader(resource.TypeTexture, assets.LoaderFunc(func(req *assets.Request) (any, error) {
		data, err := req.ReadFile()
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}))
	return c
}

func model(t *testing.T, a *assets.Asset) *Model {
	t.Helper()
	m, ok := assets.As[*Model](a)
	require.True(t, ok)
	return m
}

func TestLoadSimpleModel(t *testing.T) {
	c := newCache(t, assetsDir)
	a, err := LoadModel(c, "block/test_cube")
	require.NoError(t, err)
	m := model(t, a)

	assert.Len(t, m.Elements, 1)
	assert.Equal(t, "block/stone", m.Textures["all"])
	assert.Equal(t, "block/stone", m.Elements[0].Faces["down"].Texture)

	tex, ok := m.TextureAsset("block/stone")
	require.True(t, ok)
	assert.Equal(t, "stone pixels", tex.Value())
	assert.Empty(t, m.MissingTextures())

	edges := c.Graph().Dependencies(a.Handle().ID())
	require.Len(t, edges, 1)
	assert.Equal(t, dependency.Optional, edges[0].Kind)
	assert.Equal(t, "textures/block/stone.png", edges[0].Path)
}

func TestLoadChildModel(t *testing.T) {
	c := newCache(t, assetsDir)
	a, err := LoadModel(c, "block/test_child")
	require.NoError(t, err)
	m := model(t, a)

	assert.Len(t, m.Elements, 1, "elements are inherited from the parent")
	assert.Equal(t, "block/stone", m.Textures["all"])
	assert.Equal(t, "block/dirt", m.Textures["particle"])

	parent, ok := c.Handle(ModelPath("block/test_cube"))
	require.True(t, ok)
	assert.True(t, c.Graph().HasDependency(a.Handle().ID(), parent.ID()))

	order := c.Graph().DependencyChain(a.Handle().ID())
	require.Len(t, order, 3)
	assert.Equal(t, a.Handle().ID(), order[2])
	assert.Equal(t, parent.ID(), order[1])
}

func TestTextureResolve(t *testing.T) {
	c := newCache(t, assetsDir)
	a, err := LoadModel(c, "test_texture_resolve")
	require.NoError(t, err)
	m := model(t, a)

	assert.Equal(t, "block/diamond_block", m.Elements[0].Faces["north"].Texture)
	assert.Equal(t, "block/diamond_block", m.ResolveTexture("#secondary"))
	assert.Equal(t, "#missing", m.ResolveTexture("#missing"))
	assert.Equal(t, []string{"block/diamond_block"}, m.MissingTextures())
}

func TestCache(t *testing.T) {
	c := newCache(t, assetsDir)
	model1, err := LoadModel(c, "block/test_cube")
	require.NoError(t, err)
	model2, err := LoadModel(c, "minecraft:block/test_cube")
	require.NoError(t, err)

	assert.Same(t, model(t, model1), model(t, model2))
}

func TestParentCycle(t *testing.T) {
	c := newCache(t, assetsDir)
	_, err := LoadModel(c, "block/loop_a")
	assert.ErrorIs(t, err, assets.ErrCircularLoad)
	assert.Zero(t, c.Len())
}

func TestBlockState(t *testing.T) {
	c := newCache(t, assetsDir)
	a, err := LoadBlockState(c, "test_block")
	require.NoError(t, err)
	state, ok := assets.As[*BlockState](a)
	require.True(t, ok)

	assert.Equal(t, []string{"facing=east", "facing=north"}, state.VariantKeys())
	models := state.Models("facing=north")
	require.Len(t, models, 2)
	assert.Equal(t, "block/dirt", models[1].Textures["particle"])

	// the block state holds its models, which hold their parent and textures
	require.NoError(t, a.Release())
	assert.Equal(t, 4, c.ForceGarbageCollection())
	assert.Zero(t, c.Len())
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "models/block/stone.json", ModelPath("stone"))
	assert.Equal(t, "models/item/stick.json", ModelPath("minecraft:item/stick"))
	assert.Equal(t, "textures/block/stone.png", TexturePath("minecraft:block/stone"))
	assert.Equal(t, "blockstates/stone.json", BlockStatePath("stone"))
}

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "blockmodel-assets")
	if err != nil {
		panic(err)
	}
	assetsDir = dir
	os.MkdirAll(filepath.Join(dir, "models", "block"), 0755)
	os.MkdirAll(filepath.Join(dir, "textures", "block"), 0755)
	os.MkdirAll(filepath.Join(dir, "blockstates"), 0755)

	writeTestFile(filepath.Join(dir, "models/block/test_cube.json"), `{
		"textures": { "all": "block/stone" },
		"elements": [ { "from": [0,0,0], "to": [16,16,16], "faces": { "down": { "texture": "#all" } } } ]
	}`)

	writeTestFile(filepath.Join(dir, "models/block/test_child.json"), `{
		"parent": "block/test_cube",
		"textures": { "particle": "block/dirt" }
	}`)

	writeTestFile(filepath.Join(dir, "models/block/test_texture_resolve.json"), `{
		"textures": { "primary": "block/diamond_block", "secondary": "#primary" },
		"elements": [ { "from": [0,0,0], "to": [16,16,16], "faces": { "north": { "texture": "#secondary" } } } ]
	}`)

	writeTestFile(filepath.Join(dir, "models/block/loop_a.json"), `{ "parent": "block/loop_b" }`)
	writeTestFile(filepath.Join(dir, "models/block/loop_b.json"), `{ "parent": "block/loop_a" }`)

	writeTestFile(filepath.Join(dir, "textures/block/stone.png"), "stone pixels")

	writeTestFile(filepath.Join(dir, "blockstates/test_block.json"), `{
		"variants": {
			"facing=north": [ { "model": "block/test_cube" }, { "model": "block/test_child" } ],
			"facing=east": { "model": "block/test_cube" }
		}
	}`)

	exitCode := m.Run()
	os.RemoveAll(dir)
	os.Exit(exitCode)
}

func writeTestFile(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		panic(err)
	}
}
