package workers

import (
	"context"
	"time"

	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/service"
)

// SweepWorker runs the resilience monitor's periodic maintenance sweep.
type SweepWorker struct {
	monitor  service.Monitor
	interval time.Duration
	logger   *logger.Logger
}

func NewSweepWorker(monitor service.Monitor, interval time.Duration, logger *logger.Logger) *SweepWorker {
	return &SweepWorker{monitor: monitor, interval: interval, logger: logger}
}

// Run implements [Worker].
func (w *SweepWorker) Run(ctx context.Context) error {
	interval := w.interval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.monitor.Sweep()
			w.logger.Debug().Msg("monitor sweep finished")
		}
	}
}

// SchedulerWorker adapts the sync scheduler to the worker contract.
type SchedulerWorker struct {
	scheduler service.Scheduler
}

func NewSchedulerWorker(scheduler service.Scheduler) *SchedulerWorker {
	return &SchedulerWorker{scheduler: scheduler}
}

// Run implements [Worker].
func (w *SchedulerWorker) Run(ctx context.Context) error {
	return w.scheduler.Run(ctx)
}
