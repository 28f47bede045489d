package blockmodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two children resolving "#all" differently must not see each other's
// textures through the elements they inherit from a shared parent.
func TestSharedParentMutation(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "models", "block")
	require.NoError(t, os.MkdirAll(dir, 0755))

	writeTestFile(filepath.Join(dir, "parent.json"), `{
		"textures": { "dummy": "ignore" },
		"elements": [ { "from": [0,0,0], "to": [16,16,16], "faces": { "up": { "texture": "#all" } } } ]
	}`)

	writeTestFile(filepath.Join(dir, "child1.json"), `{
		"parent": "block/parent",
		"textures": { "all": "block/skin1" }
	}`)

	writeTestFile(filepath.Join(dir, "child2.json"), `{
		"parent": "block/parent",
		"textures": { "all": "block/skin2" }
	}`)

	c := newCache(t, root)

	c1, err := LoadModel(c, "block/child1")
	require.NoError(t, err)
	assert.Equal(t, "block/skin1", model(t, c1).Elements[0].Faces["up"].Texture)

	c2, err := LoadModel(c, "block/child2")
	require.NoError(t, err)
	assert.Equal(t, "block/skin2", model(t, c2).Elements[0].Faces["up"].Texture)

	parent, err := LoadModel(c, "block/parent")
	require.NoError(t, err)
	assert.Equal(t, "#all", model(t, parent).Elements[0].Faces["up"].Texture,
		"parent model in cache was mutated")
	assert.Equal(t, []string{"#all"}, model(t, parent).MissingTextures())
}
