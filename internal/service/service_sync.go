// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reqledger/go-req-ledger/internal/adapter"
	"github.com/reqledger/go-req-ledger/internal/config"
	"github.com/reqledger/go-req-ledger/internal/crypto"
	"github.com/reqledger/go-req-ledger/internal/events"
	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/store"
	"github.com/reqledger/go-req-ledger/models"
)

type syncEngine struct {
	requests store.RequestRepository
	meta     store.MetaRepository
	queue    ChangeQueue
	adapter  adapter.ServerAdapter
	cryptor  crypto.Cryptor
	bus      events.Bus
	logger   *logger.Logger

	cfgMu      sync.RWMutex
	cfg        config.Sync
	appVersion string

	// flight is the single-flight lock: a cycle holds the one slot for its
	// whole duration, so at most one outbound exchange sequence runs at a
	// time.
	flight chan struct{}
	rerun  atomic.Bool

	now func() time.Time
}

// NewSyncEngine wires the incremental sync engine. The engine owns the
// single-flight lock and the persisted watermark; triggers of any origin go
// through SyncNow.
func NewSyncEngine(
	requests store.RequestRepository,
	meta store.MetaRepository,
	queue ChangeQueue,
	serverAdapter adapter.ServerAdapter,
	cryptor crypto.Cryptor,
	bus events.Bus,
	cfg config.Sync,
	appVersion string,
	logger *logger.Logger,
) SyncEngine {
	return &syncEngine{
		requests:   requests,
		meta:       meta,
		queue:      queue,
		adapter:    serverAdapter,
		cryptor:    cryptor,
		bus:        bus,
		cfg:        cfg,
		appVersion: appVersion,
		logger:     logger,
		flight:     make(chan struct{}, 1),
		now:        time.Now,
	}
}

// Config implements [SyncEngine].
func (e *syncEngine) Config() config.Sync {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()

	return e.cfg
}

// SyncNow implements [SyncEngine]. An overlapping trigger never blocks: under
// the drop policy it fails with [ErrSyncInFlight], under the queue policy it
// marks exactly one follow-up cycle to run after the current one releases the
// lock.
func (e *syncEngine) SyncNow(ctx context.Context) error {
	cfg := e.Config()
	if !cfg.Enabled {
		return ErrSyncDisabled
	}
	if cfg.Endpoint == "" {
		return ErrNoEndpoint
	}

	select {
	case e.flight <- struct{}{}:
	default:
		if cfg.OverlapPolicy == config.OverlapDrop {
			return ErrSyncInFlight
		}
		e.rerun.Store(true)
		e.logger.Debug().Msg("sync in flight, follow-up cycle queued")
		return nil
	}

	err := e.runLocked(ctx, cfg)

	for e.rerun.Swap(false) {
		if followErr := e.runLocked(ctx, e.Config()); followErr != nil {
			e.logger.Warn().Err(followErr).Msg("queued follow-up sync cycle failed")
		}
	}

	<-e.flight
	return err
}

func (e *syncEngine) runLocked(ctx context.Context, cfg config.Sync) error {
	completed, err := e.performCycle(ctx, cfg)
	if err != nil {
		e.bus.Publish(events.TopicSyncError, events.ErrorEvent{Message: err.Error()})
		e.bus.Publish(events.TopicFailure, events.FailureEvent{Category: "sync", Err: err})
		return err
	}

	e.bus.Publish(events.TopicSyncCompleted, completed)
	return nil
}

// performCycle runs one two-phase cycle while the single-flight lock is
// held. Phase one drains the change queue in per-type batches; phase two
// exchanges the watermark delta and reconciles server updates. A cycle with
// nothing to push and nothing past the watermark touches the network zero
// times.
func (e *syncEngine) performCycle(ctx context.Context, cfg config.Sync) (events.CompletedEvent, error) {
	start := e.now().UnixMilli()
	e.bus.Publish(events.TopicSyncStarted, start)

	log := e.logger

	pushed, pushFailed, err := e.flushQueue(ctx, cfg)
	if err != nil {
		return events.CompletedEvent{}, err
	}
	if err = ctx.Err(); err != nil {
		return events.CompletedEvent{}, err
	}

	since, err := e.meta.LastSyncTimestamp(ctx)
	if err != nil {
		return events.CompletedEvent{}, fmt.Errorf("read sync cursor: %w", err)
	}

	records, err := e.requests.GetRequestsSince(ctx, since)
	if err != nil {
		return events.CompletedEvent{}, fmt.Errorf("collect delta rows: %w", err)
	}

	if pushed == 0 && pushFailed == 0 && len(records) == 0 {
		log.Debug().Int64("since", since).Msg("nothing to sync")
		return events.CompletedEvent{}, nil
	}

	applied := 0
	if len(records) > 0 {
		deviceID, err := e.meta.DeviceID(ctx)
		if err != nil {
			return events.CompletedEvent{}, fmt.Errorf("resolve device id: %w", err)
		}

		e.hydrateRecords(ctx, cfg, records)

		payload, err := e.wirePayload(cfg, models.SyncPayload{
			Records:       records,
			Timestamp:     start,
			DeviceID:      deviceID,
			ClientVersion: e.appVersion,
		})
		if err != nil {
			return events.CompletedEvent{}, err
		}

		resp, err := e.adapter.SyncDelta(ctx, payload)
		if err != nil {
			return events.CompletedEvent{}, fmt.Errorf("delta exchange: %w", err)
		}

		applied = e.reconcile(ctx, resp.Updates)

		// The watermark only advances after the server accepted the delta,
		// so a failed exchange replays the same rows next cycle.
		if err = e.meta.SetLastSyncTimestamp(ctx, start); err != nil {
			return events.CompletedEvent{}, fmt.Errorf("advance sync cursor: %w", err)
		}
	}

	log.Info().
		Int("pushed", pushed).
		Int("push_failed", pushFailed).
		Int("delta_rows", len(records)).
		Int("applied_updates", applied).
		Msg("sync cycle finished")

	return events.CompletedEvent{ItemCount: pushed + len(records), Failed: pushFailed}, nil
}

// flushQueue delivers the pending change queue in one batch per entity type.
// Acknowledged entries leave the queue; a failed batch stays queued in full,
// which keeps delivery at-least-once.
func (e *syncEngine) flushQueue(ctx context.Context, cfg config.Sync) (pushed, failed int, err error) {
	snapshot := e.queue.Snapshot()
	if len(snapshot) == 0 {
		return 0, 0, nil
	}

	deviceID, err := e.meta.DeviceID(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve device id: %w", err)
	}

	byType := make(map[string][]models.PendingChange)
	order := make([]string, 0, 1)
	for _, c := range snapshot {
		if _, ok := byType[c.EntityType]; !ok {
			order = append(order, c.EntityType)
		}
		byType[c.EntityType] = append(byType[c.EntityType], c)
	}

	for _, entityType := range order {
		changes := byType[entityType]
		batch := models.ChangeBatch{EntityType: entityType, DeviceID: deviceID}

		for _, c := range changes {
			cr := models.ChangeRecord{EntityID: c.EntityID, Action: c.Action}
			if c.Action != models.ActionDelete {
				rec, err := e.requests.GetRequest(ctx, c.EntityID)
				if errors.Is(err, store.ErrNotFound) {
					// Row vanished between enqueue and flush; ship the
					// tombstone instead so the server stays consistent.
					cr.Action = models.ActionDelete
				} else if err != nil {
					return pushed, failed, fmt.Errorf("hydrate queued row %s: %w", c.EntityID, err)
				} else {
					e.hydrateRecords(ctx, cfg, []models.Record{rec})
					hydrated := rec
					cr.Record = &hydrated
				}
			}
			batch.Changes = append(batch.Changes, cr)
		}

		if _, err := e.adapter.PushChanges(ctx, batch); err != nil {
			e.logger.Warn().Err(err).Str("entity_type", entityType).
				Int("count", len(changes)).Msg("change batch rejected, keeping entries queued")
			failed += len(changes)
			continue
		}

		for _, c := range changes {
			if err := e.queue.Remove(ctx, c.EntityType, c.EntityID); err != nil {
				return pushed, failed, err
			}
			pushed++
		}
	}

	return pushed, failed, nil
}

// hydrateRecords attaches timings and headers to rows per the include flags.
// Hydration failures degrade to a bare row instead of failing the cycle.
func (e *syncEngine) hydrateRecords(ctx context.Context, cfg config.Sync, records []models.Record) {
	if !cfg.IncludeTimings && !cfg.IncludeHeaders {
		return
	}

	for i := range records {
		if cfg.IncludeTimings && records[i].Timings == nil {
			t, err := e.requests.GetTimings(ctx, records[i].ID)
			if err == nil {
				records[i].Timings = &t
			} else if !errors.Is(err, store.ErrNotFound) {
				e.logger.Warn().Err(err).Str("id", records[i].ID).Msg("skipping timings hydration")
			}
		}
		if cfg.IncludeHeaders && len(records[i].Headers) == 0 {
			h, err := e.requests.GetHeaders(ctx, records[i].ID)
			if err == nil {
				records[i].Headers = h
			} else {
				e.logger.Warn().Err(err).Str("id", records[i].ID).Msg("skipping headers hydration")
			}
		}
	}
}

// wirePayload wraps the payload in the encrypted envelope when transit
// encryption is both requested and available.
func (e *syncEngine) wirePayload(cfg config.Sync, payload models.SyncPayload) (any, error) {
	if !cfg.EncryptData || !e.cryptor.Enabled() {
		return payload, nil
	}

	plain, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serialize sync payload: %w", err)
	}
	data, err := e.cryptor.Encrypt(plain)
	if err != nil {
		return nil, fmt.Errorf("encrypt sync payload: %w", err)
	}

	return models.EncryptedEnvelope{Encrypted: true, Data: data}, nil
}

// reconcile applies server updates to the local store, newest writer wins: a
// local row with a higher watermark than the incoming one is kept. Per-row
// failures are logged and skipped so one bad update cannot wedge the cycle.
func (e *syncEngine) reconcile(ctx context.Context, updates []models.ServerUpdate) int {
	applied := 0

	for _, u := range updates {
		if u.EntityType != EntityTypeRequest {
			e.logger.Warn().Str("entity_type", u.EntityType).Msg("skipping update for unknown entity type")
			continue
		}

		switch u.Action {
		case models.ServerActionDelete:
			if err := e.requests.DeleteRequest(ctx, u.EntityID); err != nil && !errors.Is(err, store.ErrNotFound) {
				e.logger.Warn().Err(err).Str("id", u.EntityID).Msg("skipping server delete")
				continue
			}
			applied++

		case models.ServerActionCreate, models.ServerActionUpdate:
			var incoming models.Record
			if err := json.Unmarshal(u.Data, &incoming); err != nil {
				e.logger.Warn().Err(err).Str("id", u.EntityID).Msg("skipping malformed server update")
				continue
			}
			if incoming.ID == "" {
				incoming.ID = u.EntityID
			}

			local, err := e.requests.GetRequest(ctx, incoming.ID)
			if err == nil && local.Timestamp > incoming.Timestamp {
				continue
			}
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				e.logger.Warn().Err(err).Str("id", incoming.ID).Msg("skipping server update")
				continue
			}

			if err := e.applyIncoming(ctx, incoming); err != nil {
				e.logger.Warn().Err(err).Str("id", incoming.ID).Msg("skipping server update")
				continue
			}
			applied++

		default:
			e.logger.Warn().Str("action", string(u.Action)).Msg("skipping update with unknown action")
		}
	}

	return applied
}

func (e *syncEngine) applyIncoming(ctx context.Context, rec models.Record) error {
	if err := e.requests.UpsertRequest(ctx, rec); err != nil {
		return err
	}
	if rec.Timings != nil {
		t := *rec.Timings
		t.RequestID = rec.ID
		if err := e.requests.UpsertTimings(ctx, t); err != nil {
			return err
		}
	}
	if len(rec.Headers) > 0 {
		if err := e.requests.UpsertHeaders(ctx, rec.ID, rec.Headers); err != nil {
			return err
		}
	}

	return nil
}

// Status implements [SyncEngine].
func (e *syncEngine) Status(ctx context.Context) (models.SyncStatus, error) {
	cfg := e.Config()

	cursor, err := e.meta.LastSyncTimestamp(ctx)
	if err != nil {
		return models.SyncStatus{}, fmt.Errorf("read sync cursor: %w", err)
	}
	deviceID, err := e.meta.DeviceID(ctx)
	if err != nil {
		return models.SyncStatus{}, fmt.Errorf("resolve device id: %w", err)
	}
	nextRun, err := e.meta.SyncDueAt(ctx)
	if err != nil {
		return models.SyncStatus{}, fmt.Errorf("read next run time: %w", err)
	}

	return models.SyncStatus{
		Enabled:           cfg.Enabled,
		Endpoint:          cfg.Endpoint,
		InFlight:          len(e.flight) > 0,
		QueueLength:       e.queue.Len(),
		LastSyncTimestamp: cursor,
		DeviceID:          deviceID,
		NextRunAt:         nextRun,
	}, nil
}

// UpdateConfig implements [SyncEngine]. The patch is validated against the
// merged result before anything is adopted, so a bad patch leaves the
// running configuration untouched.
func (e *syncEngine) UpdateConfig(ctx context.Context, patch config.SyncPatch) (config.Sync, error) {
	e.cfgMu.Lock()
	next := patch.Apply(e.cfg)
	if err := next.Validate(); err != nil {
		e.cfgMu.Unlock()
		return config.Sync{}, fmt.Errorf("invalid sync config patch: %w", err)
	}

	endpointChanged := next.Endpoint != e.cfg.Endpoint
	e.cfg = next
	e.cfgMu.Unlock()

	if endpointChanged && next.Endpoint != "" {
		if err := e.adapter.SetEndpoint(next.Endpoint); err != nil {
			return config.Sync{}, err
		}
	}

	e.logger.Info().
		Bool("enabled", next.Enabled).
		Str("endpoint", next.Endpoint).
		Dur("interval", next.Interval).
		Msg("sync config updated")

	e.bus.Publish(events.TopicConfigChanged, next)

	return next, nil
}
