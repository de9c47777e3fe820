// Package workers provides abstractions for managing and running the
// agent's background loops: the sync scheduler and the monitor sweep.
// It defines the Worker interface and a Workers aggregate that runs
// multiple workers in a unified way.
package workers

import (
	"context"
	"sync"

	"github.com/reqledger/go-req-ledger/internal/logger"
)

// Worker is a long-running background loop. Run blocks until ctx is
// cancelled; a nil or ctx.Err() return is a clean stop.
type Worker interface {
	Run(ctx context.Context) error
}

// Workers runs a set of workers concurrently and waits for all of them to
// stop.
type Workers struct {
	workers []Worker
	logger  *logger.Logger
}

func NewWorkers(logger *logger.Logger, workers ...Worker) *Workers {
	return &Workers{workers: workers, logger: logger}
}

// Run starts every worker in its own goroutine and blocks until all of them
// return, which happens when ctx is cancelled.
func (w *Workers) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, worker := range w.workers {
		wg.Add(1)
		go func(worker Worker) {
			defer wg.Done()
			if err := worker.Run(ctx); err != nil && err != context.Canceled {
				w.logger.Warn().Err(err).Msg("background worker stopped")
			}
		}(worker)
	}

	wg.Wait()
}
