package assets

import (
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

type countingFS struct {
	fstest.MapFS
	stats int
}

func (c *countingFS) Stat(name string) (fs.FileInfo, error) {
	c.stats++
	return c.MapFS.Stat(name)
}

func TestStatCacheWindow(t *testing.T) {
	clk := clock.NewMock()
	fsys := &countingFS{MapFS: fstest.MapFS{
		"a.png": {Data: []byte("a"), ModTime: epoch},
	}}
	s := newStatCache(fsys, clk, 100*time.Millisecond, 16)
	rec := watch{mod: epoch, known: true}

	assert.False(t, s.changed("a.png", rec))
	assert.Equal(t, 2, fsys.stats) // existence and mtime

	// existence is remembered within the window, mtime is not
	clk.Add(50 * time.Millisecond)
	assert.False(t, s.changed("a.png", rec))
	assert.Equal(t, 3, fsys.stats)

	clk.Add(51 * time.Millisecond)
	assert.False(t, s.changed("a.png", rec))
	assert.Equal(t, 5, fsys.stats)
}

func TestStatCacheChanged(t *testing.T) {
	clk := clock.NewMock()
	fsys := fstest.MapFS{"a.png": {Data: []byte("a"), ModTime: epoch.Add(time.Second)}}
	s := newStatCache(fsys, clk, 100*time.Millisecond, 16)

	assert.True(t, s.changed("a.png", watch{mod: epoch, known: true}))
	assert.False(t, s.changed("a.png", watch{mod: epoch.Add(time.Second), known: true}))
	assert.True(t, s.changed("a.png", watch{}), "a file that appeared after load counts as changed")
	assert.False(t, s.changed("gone.png", watch{mod: epoch, known: true}))

	assert.Equal(t, watch{mod: epoch.Add(time.Second), known: true}, s.current("a.png"))
	assert.Equal(t, watch{}, s.current("gone.png"))
}

func TestStatCacheZeroWindowAlwaysStats(t *testing.T) {
	clk := clock.NewMock()
	fsys := &countingFS{MapFS: fstest.MapFS{}}
	s := newStatCache(fsys, clk, 0, 16)

	assert.False(t, s.changed("a.png", watch{}))
	fsys.MapFS["a.png"] = &fstest.MapFile{Data: []byte("a"), ModTime: epoch}
	assert.True(t, s.changed("a.png", watch{}), "no existence answer is reused")
	assert.Equal(t, 2, fsys.stats)

	c := New(fsys, WithClock(clk), WithStatWindow(0))
	assert.Equal(t, time.Duration(0), c.statWindow)
	c = New(fsys, WithClock(clk), WithStatWindow(-time.Second))
	assert.Equal(t, defaultStatWindow, c.statWindow)
}
