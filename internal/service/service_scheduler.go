package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/reqledger/go-req-ledger/internal/auth"
	"github.com/reqledger/go-req-ledger/internal/config"
	"github.com/reqledger/go-req-ledger/internal/events"
	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/store"
)

type scheduler struct {
	engine SyncEngine
	meta   store.MetaRepository
	bus    events.Bus
	tokens auth.TokenProvider
	probe  ConnectivityProbe
	logger *logger.Logger

	mu        sync.Mutex
	mutations int

	// intervalChanged wakes the run loop so a config patch takes effect
	// without waiting out the old interval.
	intervalChanged chan struct{}

	now func() time.Time
}

// NewScheduler wires every sync trigger source to the engine: the periodic
// interval, the mutation-count threshold, login and connectivity events, and
// the monitor's retry signal for the sync category. probe may be nil, in
// which case the device is assumed online.
func NewScheduler(
	engine SyncEngine,
	meta store.MetaRepository,
	bus events.Bus,
	tokens auth.TokenProvider,
	probe ConnectivityProbe,
	logger *logger.Logger,
) Scheduler {
	return &scheduler{
		engine:          engine,
		meta:            meta,
		bus:             bus,
		tokens:          tokens,
		probe:           probe,
		logger:          logger,
		intervalChanged: make(chan struct{}, 1),
		now:             time.Now,
	}
}

// Run implements [Scheduler]. It rehydrates the persisted due time first, so
// an interval that elapsed while the agent was stopped fires immediately on
// startup rather than waiting a full period.
func (s *scheduler) Run(ctx context.Context) error {
	unsubs := []func(){
		s.bus.Subscribe(events.TopicLoginCompleted, func(any) {
			s.triggerLogged(ctx, "login")
		}),
		s.bus.Subscribe(events.TopicConnectivityRestored, func(any) {
			s.triggerLogged(ctx, "connectivity")
		}),
		s.bus.Subscribe(events.TopicConfigChanged, func(payload any) {
			if _, ok := payload.(config.Sync); !ok {
				return
			}
			select {
			case s.intervalChanged <- struct{}{}:
			default:
			}
		}),
		s.bus.Subscribe(events.TopicMutationCaptured, func(any) {
			s.onMutation(ctx)
		}),
		s.bus.Subscribe(events.RetryTopic("sync"), func(any) {
			s.triggerLogged(ctx, "retry")
		}),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	s.rehydrate(ctx)

	for {
		interval := s.engine.Config().Interval
		if interval <= 0 {
			interval = time.Minute
		}

		due := s.now().Add(interval)
		if err := s.meta.SetSyncDueAt(ctx, due.UnixMilli()); err != nil {
			s.logger.Warn().Err(err).Msg("could not persist next sync time")
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.intervalChanged:
			timer.Stop()
		case <-timer.C:
			s.triggerLogged(ctx, "interval")
		}
	}
}

// TriggerSync implements [Scheduler].
func (s *scheduler) TriggerSync(ctx context.Context) error {
	return s.trigger(ctx)
}

// rehydrate fires a catch-up cycle when the persisted due time passed while
// the agent was not running.
func (s *scheduler) rehydrate(ctx context.Context) {
	due, err := s.meta.SyncDueAt(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not read persisted sync due time")
		return
	}
	if due > 0 && due <= s.now().UnixMilli() {
		s.logger.Info().Int64("due_at", due).Msg("missed sync interval while stopped, catching up")
		s.triggerLogged(ctx, "rehydrate")
	}
}

func (s *scheduler) onMutation(ctx context.Context) {
	threshold := s.engine.Config().ChangeThreshold
	if threshold <= 0 {
		return
	}

	s.mu.Lock()
	s.mutations++
	fire := s.mutations >= threshold
	if fire {
		s.mutations = 0
	}
	s.mu.Unlock()

	if fire {
		s.triggerLogged(ctx, "threshold")
	}
}

// trigger runs the guard chain and hands off to the engine. Guard failures
// are normal operating conditions, not faults: the caller decides whether to
// surface them.
func (s *scheduler) trigger(ctx context.Context) error {
	cfg := s.engine.Config()

	if !cfg.Enabled {
		return ErrSyncDisabled
	}
	if cfg.Endpoint == "" {
		return ErrNoEndpoint
	}
	if cfg.RequireAuth && (s.tokens == nil || !s.tokens.IsAuthenticated()) {
		return ErrNotAuthenticated
	}
	if s.probe != nil && !s.probe.Online() {
		return ErrOffline
	}

	return s.engine.SyncNow(ctx)
}

// triggerLogged is the fire-and-forget form used by scheduled sources:
// guard rejections are logged at debug, real failures at warn, and nothing
// propagates. The engine has already routed failures to the monitor.
func (s *scheduler) triggerLogged(ctx context.Context, source string) {
	err := s.trigger(ctx)
	if err == nil {
		return
	}

	if errors.Is(err, ErrSyncDisabled) || errors.Is(err, ErrNoEndpoint) ||
		errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrOffline) ||
		errors.Is(err, ErrSyncInFlight) {
		s.logger.Debug().Str("source", source).Err(err).Msg("sync trigger skipped")
		return
	}

	s.logger.Warn().Str("source", source).Err(err).Msg("scheduled sync failed")
}
