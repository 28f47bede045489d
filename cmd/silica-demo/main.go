package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Tfc538/SilicaEngine-sub000/internal/config"
	"github.com/Tfc538/SilicaEngine-sub000/internal/engine"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "silica-demo:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		return err
	}

	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	window, err := setupWindow(cfg.Window)
	if err != nil {
		return err
	}

	var e *engine.Engine
	app := fx.New(
		fx.Supply(cfg),
		engine.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Populate(&e),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	s, err := setupScene(e, cfg.Window)
	if err == nil {
		runLoop(window, e, s)
		err = s.Close()
	}

	// GL objects have to be deleted on the thread that owns the context and
	// fx runs stop hooks on its own goroutine, so the cache is emptied here.
	if cerr := e.Cache.Shutdown(); cerr != nil {
		e.Log.Warn("asset shutdown", zap.Error(cerr))
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelStop()
	if serr := app.Stop(stopCtx); serr != nil && err == nil {
		err = serr
	}
	return err
}
