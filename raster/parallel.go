package raster

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelRows runs fn over [0, h) sharded into contiguous row bands, one per
// CPU.  fn must only touch pixels inside its band.  The first error cancels
// the remaining bands.
func ParallelRows(ctx context.Context, h int, fn func(y0, y1 int) error) error {
	workers := runtime.NumCPU()
	if workers > h {
		workers = h
	}
	if workers <= 1 {
		return fn(0, h)
	}

	g, _ := errgroup.WithContext(ctx)
	band := (h + workers - 1) / workers
	for y0 := 0; y0 < h; y0 += band {
		y0, y1 := y0, y0+band
		if y1 > h {
			y1 = h
		}
		g.Go(func() error { return fn(y0, y1) })
	}
	return g.Wait()
}
