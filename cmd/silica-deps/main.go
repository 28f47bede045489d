// Command silica-deps loads assets headlessly and prints their dependency
// graph: loading order, statistics and cycles, optionally as DOT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
	"github.com/Tfc538/SilicaEngine-sub000/internal/config"
	"github.com/Tfc538/SilicaEngine-sub000/internal/engine"
	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "silica-deps:", err)
		os.Exit(1)
	}
}

// kindFor infers the asset type from a path
func kindFor(p string) resource.Type {
	if strings.HasPrefix(p, "models/") || strings.HasPrefix(p, "blockstates/") {
		return resource.TypeModel
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return resource.TypeTexture
	case ".glsl", ".shader":
		return resource.TypeShader
	case ".mat":
		return resource.TypeMaterial
	case ".ttf", ".otf":
		return resource.TypeFont
	}
	return resource.TypeUnknown
}

func run(args []string, out io.Writer) (err error) {
	fs := flag.NewFlagSet("silica-deps", flag.ContinueOnError)
	fs.SetOutput(out)
	root := fs.String("root", "", "asset root directory (default $SILICA_ASSET_ROOT or ./assets)")
	dot := fs.String("dot", "", "write the dependency graph as DOT to this file, - for stdout")
	verbose := fs.Bool("v", false, "log cache activity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: silica-deps [-root dir] [-dot file] asset...")
	}

	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	if *root != "" {
		cfg.AssetRoot = *root
	}
	cfg.LogLevel = "error"
	if *verbose {
		cfg.LogLevel = "debug"
		cfg.Development = true
	}

	var e *engine.Engine
	app := fx.New(fx.Supply(cfg), engine.Module, fx.NopLogger, fx.Populate(&e))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, app.Stop(ctx)) }()

	var loaded []*assets.Asset
	defer func() {
		for _, a := range loaded {
			err = multierr.Append(err, a.Release())
		}
	}()
	var roots []resource.ID
	for _, p := range fs.Args() {
		kind := kindFor(p)
		if kind == resource.TypeUnknown {
			return fmt.Errorf("%s: cannot tell the asset type from the path", p)
		}
		a, err := e.Cache.Load(kind, p, assets.Params{})
		if err != nil {
			return err
		}
		loaded = append(loaded, a)
		roots = append(roots, a.Handle().ID())
	}

	report(out, e, roots)

	if *dot != "" {
		graph := e.Graph.ExportDOT()
		if *dot == "-" {
			_, err = io.WriteString(out, graph)
			return err
		}
		return os.WriteFile(*dot, []byte(graph), 0644)
	}
	return nil
}

func report(out io.Writer, e *engine.Engine, roots []resource.ID) {
	name := e.Registry.NameOf

	fmt.Fprintln(out, "loading order:")
	for i, id := range e.Graph.LoadingOrder(roots) {
		info, _ := e.Cache.Info(name(id))
		fmt.Fprintf(out, "  %2d. %-40s %s\n", i+1, name(id), info.Kind)
	}

	st := e.Graph.Statistics()
	fmt.Fprintf(out, "dependencies: %d (required %d, optional %d, runtime %d)\n",
		st.TotalDependencies, st.RequiredDependencies, st.OptionalDependencies, st.RuntimeDependencies)
	fmt.Fprintf(out, "assets: %d cached, %d with dependencies, %d bytes\n",
		e.Cache.Len(), st.AssetsWithDependencies, e.Cache.MemoryUsage())

	for _, cycle := range e.Graph.Cycles() {
		names := make([]string, len(cycle))
		for i, id := range cycle {
			names[i] = name(id)
		}
		fmt.Fprintf(out, "cycle: %s\n", strings.Join(names, " -> "))
	}
	if missing := e.Graph.Validate(e.Registry); len(missing) > 0 {
		fmt.Fprintf(out, "dangling: %v\n", missing)
	}
}
