package engine

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
	"github.com/Tfc538/SilicaEngine-sub000/internal/config"
	"github.com/Tfc538/SilicaEngine-sub000/internal/dependency"
	"github.com/Tfc538/SilicaEngine-sub000/internal/graphics"
	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

// Engine bundles the resource core for a host loop
type Engine struct {
	Config     config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	Registry   *resource.Registry
	Graph      *dependency.Manager
	Cache      *assets.Cache
	Metrics    *assets.Metrics
	Tracker    *graphics.Tracker
	Prometheus *prometheus.Registry

	lastPoll    time.Time
	lastCleanup time.Time
}

// Params are the parts New assembles
type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	Registry   *resource.Registry
	Graph      *dependency.Manager
	Cache      *assets.Cache
	Metrics    *assets.Metrics
	Tracker    *graphics.Tracker
	Prometheus *prometheus.Registry
}

func New(p Params) *Engine {
	now := p.Clock.Now()
	return &Engine{
		Config:      p.Config,
		Log:         p.Log,
		Clock:       p.Clock,
		Registry:    p.Registry,
		Graph:       p.Graph,
		Cache:       p.Cache,
		Metrics:     p.Metrics,
		Tracker:     p.Tracker,
		Prometheus:  p.Prometheus,
		lastPoll:    now,
		lastCleanup: now,
	}
}

// TickResult reports the maintenance one Tick performed
type TickResult struct {
	Reloaded  int
	Collected int
}

// Tick runs the periodic maintenance that is due: a hot reload poll every
// PollInterval and a full collection every CleanupInterval. Call it once
// per frame from the thread that owns the GL context.
func (e *Engine) Tick() TickResult {
	var res TickResult
	now := e.Clock.Now()
	if now.Sub(e.lastPoll) >= e.Config.PollInterval {
		e.lastPoll = now
		res.Reloaded = e.Cache.CheckForChanges()
	}
	if now.Sub(e.lastCleanup) >= e.Config.CleanupInterval {
		e.lastCleanup = now
		res.Collected = e.Cache.ForceGarbageCollection()
		if res.Collected > 0 {
			e.Log.Debug("collected unused assets", zap.Int("count", res.Collected))
		}
	}
	return res
}

// Stats is a snapshot of the resource core for overlays and tools
type Stats struct {
	Assets      int
	Textures    int
	Shaders     int
	Materials   int
	Models      int
	Fonts       int
	MemoryUsage int64
	Handles     int
	Edges       int
	GLObjects   int
}

func (e *Engine) Stats() Stats {
	return Stats{
		Assets:      e.Cache.Len(),
		Textures:    e.Cache.Count(resource.TypeTexture),
		Shaders:     e.Cache.Count(resource.TypeShader),
		Materials:   e.Cache.Count(resource.TypeMaterial),
		Models:      e.Cache.Count(resource.TypeModel),
		Fonts:       e.Cache.Count(resource.TypeFont),
		MemoryUsage: e.Cache.MemoryUsage(),
		Handles:     e.Registry.Len(),
		Edges:       e.Graph.Statistics().TotalDependencies,
		GLObjects:   e.Tracker.Live(""),
	}
}
