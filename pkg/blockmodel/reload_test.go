package blockmodel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

func TestTextureReloadSurvivesCollection(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "models", "block"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "textures", "block"), 0755))
	writeTestFile(filepath.Join(root, "models/block/cube.json"), `{
		"textures": { "all": "block/stone" },
		"elements": [ { "from": [0,0,0], "to": [16,16,16], "faces": { "up": { "texture": "#all" } } } ]
	}`)
	texFile := filepath.Join(root, "textures/block/stone.png")
	writeTestFile(texFile, "stone pixels")

	c := newCache(t, root)
	a, err := LoadModel(c, "block/cube")
	require.NoError(t, err)
	defer a.Release()
	tex, ok := model(t, a).TextureAsset("block/stone")
	require.True(t, ok)

	writeTestFile(texFile, "new stone pixels")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(texFile, future, future))
	require.Equal(t, 1, c.CheckForChanges())

	assert.Zero(t, c.ForceGarbageCollection())
	assert.True(t, c.IsLoaded(TexturePath("block/stone")))
	current, ok := resource.Resolve[string](c.Registry(), tex.Handle())
	require.True(t, ok)
	assert.Equal(t, "new stone pixels", current)
}
