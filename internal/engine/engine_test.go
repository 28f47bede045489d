package engine

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
	"github.com/Tfc538/SilicaEngine-sub000/internal/config"
	"github.com/Tfc538/SilicaEngine-sub000/internal/graphics"
	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

func writePNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func newTestApp(t *testing.T, root string, clk *clock.Mock) (*fxtest.App, *Engine) {
	t.Helper()
	cfg := config.Default()
	cfg.AssetRoot = root
	cfg.LogLevel = "error"

	var e *Engine
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Decorate(func(clock.Clock) clock.Clock { return clk }),
		fx.Decorate(func(*zap.Logger) *zap.Logger { return zaptest.NewLogger(t) }),
		fx.Populate(&e),
	)
	return app, e
}

func TestEngineLifecycle(t *testing.T) {
	root := t.TempDir()
	clk := clock.NewMock()
	app, e := newTestApp(t, root, clk)
	app.RequireStart()

	s := e.Stats()
	assert.Equal(t, 6, s.Assets, "built-in assets are put on start")
	assert.Equal(t, 3, s.Textures)
	assert.Equal(t, 2, s.Shaders)
	assert.Equal(t, 1, s.Fonts)
	assert.Same(t, e.Registry, e.Cache.Registry())
	assert.Same(t, e.Graph, e.Cache.Graph())

	app.RequireStop()
	assert.Zero(t, e.Cache.Len())
	assert.Zero(t, e.Registry.Len())
	assert.Zero(t, e.Graph.Len())
}

func TestEngineTick(t *testing.T) {
	root := t.TempDir()
	texPath := filepath.Join(root, "stone.png")
	writePNG(t, texPath, color.RGBA{128, 128, 128, 255})
	require.NoError(t, os.WriteFile(filepath.Join(root, "stone.mat"),
		[]byte(`{"textures": [{"uniform": "u_Texture", "path": "stone.png"}]}`), 0644))

	clk := clock.NewMock()
	app, e := newTestApp(t, root, clk)
	app.RequireStart()
	defer app.RequireStop()

	mat, err := e.Cache.Load(resource.TypeMaterial, "stone.mat", assets.Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Stats().Materials)
	assert.Equal(t, 2, e.Stats().Edges)

	// nothing is due yet
	assert.Equal(t, TickResult{}, e.Tick())

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(texPath, future, future))
	clk.Add(e.Config.PollInterval)
	assert.Equal(t, TickResult{Reloaded: 1}, e.Tick())
	assert.Equal(t, 1.0, testutil.ToFloat64(e.Metrics.Reloads))

	m, ok := assets.As[*graphics.Material](mat)
	require.True(t, ok)
	_, ok = m.CurrentTexture(0)
	assert.True(t, ok)

	require.NoError(t, mat.Release())
	clk.Add(e.Config.CleanupInterval)
	res := e.Tick()
	assert.Equal(t, 2, res.Collected, "the material and its texture")
	assert.Equal(t, 6, e.Cache.Len())
}
