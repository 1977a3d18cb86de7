package renderer

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// WorkerPool distributes the tiles of a pass over a fixed number of goroutines
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a pool; numWorkers <= 0 uses the CPU count
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{numWorkers: numWorkers}
}

// NumWorkers returns the number of goroutines used by Run
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// Run renders every tile once. render is called with the index of the worker goroutine, so state
// indexed by worker is never shared. The first error stops the remaining tiles from being handed
// out and is returned.
func (wp *WorkerPool) Run(tiles []*Tile, render func(worker int, tile *Tile) error) error {
	g, ctx := errgroup.WithContext(context.Background())
	queue := make(chan *Tile)

	g.Go(func() error {
		defer close(queue)
		for _, tile := range tiles {
			select {
			case queue <- tile:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < wp.numWorkers; w++ {
		g.Go(func() error {
			for tile := range queue {
				if err := render(w, tile); err != nil {
					return err
				}
				tile.PassesCompleted++
			}
			return nil
		})
	}
	return g.Wait()
}
