package assets

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

// Result is the outcome of an asynchronous load
type Result struct {
	Asset *Asset
	Err   error
}

// Spec names one asset of a batch
type Spec struct {
	Kind   resource.Type
	Path   string
	Params Params
}

// LoadAsync loads in the background. The channel receives exactly one
// Result and is then closed. A context cancelled before the load starts
// yields its error; a running loader is never interrupted.
func (c *Cache) LoadAsync(ctx context.Context, kind resource.Type, p string, params Params) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		if err := ctx.Err(); err != nil {
			if params.Callback != nil {
				params.Callback(nil, err)
			}
			out <- Result{Err: err}
			return
		}
		a, err := c.Load(kind, p, params)
		out <- Result{Asset: a, Err: err}
	}()
	return out
}

// LoadBatch loads specs with at most limit loads in flight (no limit when
// limit <= 0). Results follow the order of specs. On the first error the remaining
// loads are skipped and every asset the batch already obtained is released.
func (c *Cache) LoadBatch(ctx context.Context, specs []Spec, limit int) ([]*Asset, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	out := make([]*Asset, len(specs))
	for i, s := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := c.Load(s.Kind, s.Path, s.Params)
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, a := range out {
			_ = a.Release()
		}
		return nil, err
	}
	return out, nil
}
