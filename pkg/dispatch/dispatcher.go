package dispatch

import (
	"context"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Dispatcher runs the groups of a pass concurrently on at most Workers goroutines.
// A pass returns only after every group finished, so passes never overlap.
type Dispatcher struct {
	grid    Grid
	workers int
}

// NewDispatcher returns a dispatcher for grid. workers <= 0 means GOMAXPROCS.
func NewDispatcher(grid Grid, workers int) *Dispatcher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Dispatcher{grid: grid, workers: workers}
}

// Grid returns the partitioning used by the dispatcher.
func (d *Dispatcher) Grid() Grid { return d.grid }

// Workers returns the size of the worker pool.
func (d *Dispatcher) Workers() int { return d.workers }

// Agents calls fn once for every agent group covering [0,total).
// total == 0 is a no-op. The first error cancels the remaining groups and is returned.
func (d *Dispatcher) Agents(ctx context.Context, total int, fn func(ctx context.Context, r Range) error) error {
	groups := d.grid.AgentGroups(total)
	if len(groups) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, r := range groups {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, r)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// the group context is always cancelled once Wait returns, report the caller's
	return ctx.Err()
}

// Tiles calls fn once for every tile covering a width x height canvas, tile is its index in Grid.Tiles.
// An empty canvas is a no-op.
func (d *Dispatcher) Tiles(ctx context.Context, width, height int, fn func(ctx context.Context, tile int, r image.Rectangle) error) error {
	tiles := d.grid.Tiles(width, height)
	if len(tiles) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, r := range tiles {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, i, r)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
