package service

import (
	"context"

	"github.com/reqledger/go-req-ledger/internal/adapter"
	"github.com/reqledger/go-req-ledger/internal/auth"
	"github.com/reqledger/go-req-ledger/internal/config"
	"github.com/reqledger/go-req-ledger/internal/crypto"
	"github.com/reqledger/go-req-ledger/internal/events"
	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/store"
)

// Services aggregates the sync layer for consumers: the agent entrypoint and
// the admin API.
type Services struct {
	Queue     ChangeQueue
	Capture   CaptureService
	Engine    SyncEngine
	Bulk      BulkService
	Scheduler Scheduler
	Monitor   Monitor
}

// NewServices wires the full service graph. The monitor comes up with a
// transport-wide retry strategy for the sync category; callers can register
// further strategies before starting the scheduler.
func NewServices(
	ctx context.Context,
	storages *store.Storages,
	serverAdapter adapter.ServerAdapter,
	tokens auth.TokenProvider,
	cryptor crypto.Cryptor,
	bus events.Bus,
	probe ConnectivityProbe,
	cfg *config.StructuredConfig,
	logger *logger.Logger,
) (*Services, error) {
	queue, err := NewChangeQueue(ctx, storages.Queue, logger.WithComponent("queue"))
	if err != nil {
		return nil, err
	}

	engine := NewSyncEngine(
		storages.Requests, storages.Meta, queue,
		serverAdapter, cryptor, bus,
		cfg.Sync, cfg.App.Version,
		logger.WithComponent("engine"),
	)

	monitor := NewMonitor(bus, cfg.Monitor, logger.WithComponent("monitor"))
	monitor.RegisterStrategy("sync", KindAny, RetryStrategy{
		MaxRetries: 3,
		BackoffMs:  1000,
		Multiplier: 2,
	})

	// Completed cycles reset the sync retry streak.
	bus.Subscribe(events.TopicSyncCompleted, func(any) {
		monitor.Success("sync")
	})

	return &Services{
		Queue:     queue,
		Capture:   NewCaptureService(storages.Requests, queue, bus, logger.WithComponent("capture")),
		Engine:    engine,
		Bulk:      NewBulkService(storages.Requests, storages.Meta, queue, engine, serverAdapter, cryptor, bus, cfg.App.Version, logger.WithComponent("bulk")),
		Scheduler: NewScheduler(engine, storages.Meta, bus, tokens, probe, logger.WithComponent("scheduler")),
		Monitor:   monitor,
	}, nil
}
