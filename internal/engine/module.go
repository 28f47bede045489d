package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
	"github.com/Tfc538/SilicaEngine-sub000/internal/config"
	"github.com/Tfc538/SilicaEngine-sub000/internal/dependency"
	"github.com/Tfc538/SilicaEngine-sub000/internal/graphics"
	"github.com/Tfc538/SilicaEngine-sub000/internal/logging"
	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
	"github.com/Tfc538/SilicaEngine-sub000/pkg/blockmodel"
)

// Module wires the resource core. It expects a config.Config to be
// supplied and provides *Engine along with each of its parts.
var Module = fx.Module("engine",
	fx.Provide(
		newClock,
		logging.New,
		newRegistry,
		newGraph,
		newPrometheus,
		newMetrics,
		graphics.NewTracker,
		newCache,
		New,
	),
	fx.Invoke(registerLifecycle),
)

func newClock() clock.Clock { return clock.New() }

func newRegistry(log *zap.Logger, clk clock.Clock) *resource.Registry {
	return resource.NewRegistry(resource.WithLogger(log.Named("registry")), resource.WithClock(clk))
}

func newGraph(log *zap.Logger, reg *resource.Registry) *dependency.Manager {
	return dependency.NewManager(dependency.WithLogger(log.Named("dependency")), dependency.WithNamer(reg.NameOf))
}

func newPrometheus() *prometheus.Registry { return prometheus.NewRegistry() }

func newMetrics(reg *prometheus.Registry) *assets.Metrics { return assets.NewMetrics(reg) }

type cacheParams struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Clock    clock.Clock
	Registry *resource.Registry
	Graph    *dependency.Manager
	Metrics  *assets.Metrics
	Tracker  *graphics.Tracker
}

func newCache(p cacheParams) (*assets.Cache, error) {
	if err := os.MkdirAll(p.Config.AssetRoot, 0755); err != nil {
		return nil, fmt.Errorf("asset root: %w", err)
	}
	c := assets.New(os.DirFS(p.Config.AssetRoot),
		assets.WithLogger(p.Log.Named("assets")),
		assets.WithClock(p.Clock),
		assets.WithRegistry(p.Registry),
		assets.WithGraph(p.Graph),
		assets.WithMetrics(p.Metrics),
		assets.WithStatWindow(p.Config.StatWindow),
		assets.WithStatCacheSize(p.Config.StatCacheSize),
		assets.WithHotReload(p.Config.HotReload),
	)
	graphics.RegisterLoaders(c, p.Tracker)
	blockmodel.Register(c)
	return c, nil
}

func registerLifecycle(lc fx.Lifecycle, e *Engine) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := graphics.RegisterDefaults(e.Cache, e.Tracker); err != nil {
				return fmt.Errorf("register default assets: %w", err)
			}
			e.Log.Info("engine started",
				zap.String("asset_root", e.Config.AssetRoot),
				zap.Bool("hot_reload", e.Cache.HotReload()))
			return nil
		},
		OnStop: func(context.Context) error {
			return e.Shutdown()
		},
	})
}

// Shutdown releases every cached asset, reports GL objects that outlived
// the cache and empties the graph and registry.
func (e *Engine) Shutdown() error {
	err := e.Cache.Shutdown()
	if leaks := e.Tracker.ReportLeaks(); leaks > 0 {
		err = multierr.Append(err, fmt.Errorf("%d GL objects leaked", leaks))
	}
	e.Graph.Clear()
	e.Registry.Clear()
	e.Log.Info("engine stopped")
	_ = e.Log.Sync()
	return err
}
