package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/reqledger/go-req-ledger/internal/adapter"
	"github.com/reqledger/go-req-ledger/internal/crypto"
	"github.com/reqledger/go-req-ledger/internal/events"
	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/store"
	"github.com/reqledger/go-req-ledger/models"
)

type bulkService struct {
	requests store.RequestRepository
	meta     store.MetaRepository
	queue    ChangeQueue
	engine   SyncEngine
	adapter  adapter.ServerAdapter
	cryptor  crypto.Cryptor
	bus      events.Bus
	logger   *logger.Logger

	appVersion string

	now func() time.Time
}

// NewBulkService wires the full-transfer operations that bypass the
// incremental watermark protocol.
func NewBulkService(
	requests store.RequestRepository,
	meta store.MetaRepository,
	queue ChangeQueue,
	engine SyncEngine,
	serverAdapter adapter.ServerAdapter,
	cryptor crypto.Cryptor,
	bus events.Bus,
	appVersion string,
	logger *logger.Logger,
) BulkService {
	return &bulkService{
		requests:   requests,
		meta:       meta,
		queue:      queue,
		engine:     engine,
		adapter:    serverAdapter,
		cryptor:    cryptor,
		bus:        bus,
		appVersion: appVersion,
		logger:     logger,
		now:        time.Now,
	}
}

// PushAll implements [BulkService]. The full dataset replaces the server's
// view of this device, so a successful upload also clears the change queue
// and advances the watermark: everything local is now known to the server.
func (s *bulkService) PushAll(ctx context.Context) (models.SyncResult, error) {
	cfg := s.engine.Config()
	if !cfg.Enabled {
		return models.SyncResult{}, ErrSyncDisabled
	}
	if cfg.Endpoint == "" {
		return models.SyncResult{}, ErrNoEndpoint
	}

	start := s.now().UnixMilli()

	records, err := s.requests.GetRequestsSince(ctx, 0)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("collect local rows: %w", err)
	}
	deviceID, err := s.meta.DeviceID(ctx)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("resolve device id: %w", err)
	}

	payload, err := s.wirePayload(cfg.EncryptData, models.SyncPayload{
		Records:       records,
		Timestamp:     start,
		DeviceID:      deviceID,
		ClientVersion: s.appVersion,
		FullUpload:    true,
	})
	if err != nil {
		return models.SyncResult{}, err
	}

	result, err := s.adapter.Upload(ctx, payload)
	if err != nil {
		s.bus.Publish(events.TopicFailure, events.FailureEvent{Category: "sync", Err: err})
		return models.SyncResult{}, fmt.Errorf("full upload: %w", err)
	}

	if err = s.queue.Clear(ctx); err != nil {
		return result, err
	}
	if err = s.meta.SetLastSyncTimestamp(ctx, start); err != nil {
		return result, fmt.Errorf("advance sync cursor: %w", err)
	}

	s.logger.Info().Int("rows", len(records)).Msg("full upload completed")

	return result, nil
}

// PullAll implements [BulkService]. Incoming rows merge under the same
// newest-writer-wins rule as delta reconciliation, so a pull never clobbers
// a fresher local edit. On completion the watermark advances to the pull
// start time: the local store now reflects everything the server had.
func (s *bulkService) PullAll(ctx context.Context, query models.DownloadQuery) (int, error) {
	cfg := s.engine.Config()
	if cfg.Endpoint == "" {
		return 0, ErrNoEndpoint
	}

	start := s.now().UnixMilli()

	resp, err := s.adapter.Download(ctx, query)
	if err != nil {
		s.bus.Publish(events.TopicFailure, events.FailureEvent{Category: "sync", Err: err})
		return 0, fmt.Errorf("download: %w", err)
	}

	records, err := s.unwrapDownload(resp)
	if err != nil {
		s.bus.Publish(events.TopicFailure, events.FailureEvent{Category: "sync", Err: err})
		return 0, err
	}

	applied := 0
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}

		local, err := s.requests.GetRequest(ctx, rec.ID)
		if err == nil && local.Timestamp > rec.Timestamp {
			continue
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn().Err(err).Str("id", rec.ID).Msg("skipping pulled row")
			continue
		}

		if err := s.requests.UpsertRequest(ctx, rec); err != nil {
			s.logger.Warn().Err(err).Str("id", rec.ID).Msg("skipping pulled row")
			continue
		}
		if rec.Timings != nil {
			t := *rec.Timings
			t.RequestID = rec.ID
			if err := s.requests.UpsertTimings(ctx, t); err != nil {
				s.logger.Warn().Err(err).Str("id", rec.ID).Msg("pulled row saved without timings")
			}
		}
		if len(rec.Headers) > 0 {
			if err := s.requests.UpsertHeaders(ctx, rec.ID, rec.Headers); err != nil {
				s.logger.Warn().Err(err).Str("id", rec.ID).Msg("pulled row saved without headers")
			}
		}
		applied++
	}

	if err = s.meta.SetLastSyncTimestamp(ctx, start); err != nil {
		return applied, fmt.Errorf("advance sync cursor: %w", err)
	}

	s.logger.Info().Int("received", len(records)).Int("applied", applied).Msg("bulk pull completed")

	return applied, nil
}

// unwrapDownload decrypts a flagged-encrypted download body back into its
// record list. A flagged body with encryption unavailable locally is a hard
// error: the records cannot be recovered.
func (s *bulkService) unwrapDownload(resp models.DownloadResponse) ([]models.Record, error) {
	if !resp.Encrypted {
		return resp.Requests, nil
	}

	plain, err := s.cryptor.Decrypt(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("decrypt download body: %w", err)
	}

	var inner models.DownloadResponse
	if err = json.Unmarshal(plain, &inner); err != nil {
		return nil, fmt.Errorf("decode download body: %w", err)
	}

	return inner.Requests, nil
}

// SyncNamed implements [BulkService]. Lifecycle events are published under
// the resource kind's own namespace so observers can follow a single
// resource without filtering the global topics.
func (s *bulkService) SyncNamed(ctx context.Context, resourceKind string, options any) (models.SyncResult, error) {
	cfg := s.engine.Config()
	if cfg.Endpoint == "" {
		return models.SyncResult{}, ErrNoEndpoint
	}

	s.bus.Publish(events.SyncTopic(resourceKind, "started"), s.now().UnixMilli())

	result, err := s.adapter.SyncNamed(ctx, resourceKind, options)
	if err != nil {
		s.bus.Publish(events.SyncTopic(resourceKind, "error"), events.ErrorEvent{Message: err.Error()})
		s.bus.Publish(events.TopicFailure, events.FailureEvent{Category: resourceKind, Err: err})
		return models.SyncResult{}, fmt.Errorf("sync %s: %w", resourceKind, err)
	}

	s.bus.Publish(events.SyncTopic(resourceKind, "completed"), events.CompletedEvent{
		ItemCount: result.ProcessedCount,
		Failed:    result.FailedCount,
	})

	return result, nil
}

func (s *bulkService) wirePayload(encrypt bool, payload models.SyncPayload) (any, error) {
	if !encrypt || !s.cryptor.Enabled() {
		return payload, nil
	}

	plain, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serialize upload payload: %w", err)
	}
	data, err := s.cryptor.Encrypt(plain)
	if err != nil {
		return nil, fmt.Errorf("encrypt upload payload: %w", err)
	}

	return models.EncryptedEnvelope{Encrypted: true, Data: data}, nil
}
