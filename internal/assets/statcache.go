package assets

import (
	"io/fs"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultStatWindow    = 100 * time.Millisecond
	defaultStatCacheSize = 1024
)

// statCache answers "does this file exist" from memory for up to one window
// and forgets everything once the window has passed. Modification times are
// always read fresh.
type statCache struct {
	fsys   fs.FS
	clock  clock.Clock
	window time.Duration
	exists *lru.Cache[string, bool]
	purged time.Time
}

func newStatCache(fsys fs.FS, clk clock.Clock, window time.Duration, size int) *statCache {
	if size <= 0 {
		size = defaultStatCacheSize
	}
	exists, err := lru.New[string, bool](size)
	if err != nil {
		// only fails for non-positive sizes
		panic(err)
	}
	return &statCache{
		fsys:   fsys,
		clock:  clk,
		window: window,
		exists: exists,
		purged: clk.Now(),
	}
}

func (s *statCache) expire() {
	now := s.clock.Now()
	if now.Sub(s.purged) > s.window {
		s.exists.Purge()
		s.purged = now
	}
}

func (s *statCache) fileExists(name string) bool {
	if s.window <= 0 {
		_, err := fs.Stat(s.fsys, name)
		return err == nil
	}
	s.expire()
	if ok, hit := s.exists.Get(name); hit {
		return ok
	}
	_, err := fs.Stat(s.fsys, name)
	ok := err == nil
	s.exists.Add(name, ok)
	return ok
}

// changed reports whether name differs from what was recorded at load time.
// A missing file never counts as changed; a file that was missing at load
// time and exists now always does.
func (s *statCache) changed(name string, w watch) bool {
	if !s.fileExists(name) {
		return false
	}
	if !w.known {
		return true
	}
	info, err := fs.Stat(s.fsys, name)
	if err != nil {
		return false
	}
	return info.ModTime().After(w.mod)
}

// current returns a fresh record for name
func (s *statCache) current(name string) watch {
	info, err := fs.Stat(s.fsys, name)
	if err != nil {
		return watch{}
	}
	return watch{mod: info.ModTime(), known: true}
}
