package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reqledger/go-req-ledger/internal/events"
	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/store"
	"github.com/reqledger/go-req-ledger/models"
)

// EntityTypeRequest is the entity type of captured request rows. It is the
// only entity type the agent captures today; the queue and wire formats stay
// type-tagged so further kinds can join without a schema change.
const EntityTypeRequest = "request"

type captureService struct {
	requests store.RequestRepository
	queue    ChangeQueue
	bus      events.Bus
	logger   *logger.Logger

	now func() time.Time
}

// NewCaptureService wires the local write path: row persistence, change
// enqueueing, and mutation announcements.
func NewCaptureService(requests store.RequestRepository, queue ChangeQueue, bus events.Bus, logger *logger.Logger) CaptureService {
	return &captureService{
		requests: requests,
		queue:    queue,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
	}
}

// RecordRequest implements [CaptureService]. The row write, the queue entry,
// and the bus announcement happen in that order; the announcement only fires
// once the change is durable.
func (s *captureService) RecordRequest(ctx context.Context, rec models.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record request: empty id")
	}

	nowMs := s.now().UnixMilli()
	if rec.Timestamp == 0 {
		rec.Timestamp = nowMs
	}
	if rec.StartedAt == 0 {
		rec.StartedAt = rec.Timestamp
	}

	action := models.ActionSave
	if _, err := s.requests.GetRequest(ctx, rec.ID); err == nil {
		action = models.ActionUpdate
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup request %s: %w", rec.ID, err)
	}

	if err := s.requests.UpsertRequest(ctx, rec); err != nil {
		return fmt.Errorf("persist request %s: %w", rec.ID, err)
	}

	if rec.Timings != nil {
		t := *rec.Timings
		t.RequestID = rec.ID
		if err := s.requests.UpsertTimings(ctx, t); err != nil {
			return fmt.Errorf("persist timings for %s: %w", rec.ID, err)
		}
	}
	if len(rec.Headers) > 0 {
		if err := s.requests.UpsertHeaders(ctx, rec.ID, rec.Headers); err != nil {
			return fmt.Errorf("persist headers for %s: %w", rec.ID, err)
		}
	}

	if err := s.queue.Enqueue(ctx, EntityTypeRequest, rec.ID, action); err != nil {
		return err
	}

	s.logger.Debug().
		Str("func", "RecordRequest").
		Str("id", rec.ID).
		Str("action", string(action)).
		Msg("captured request")

	s.bus.Publish(events.TopicMutationCaptured, models.PendingChange{
		EntityType: EntityTypeRequest,
		EntityID:   rec.ID,
		Action:     action,
		EnqueuedAt: nowMs,
	})

	return nil
}

// ListRequests implements [CaptureService].
func (s *captureService) ListRequests(ctx context.Context, query models.DownloadQuery) ([]models.Record, error) {
	records, err := s.requests.QueryRequests(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	return records, nil
}

// DeleteRequest implements [CaptureService]. Deleting a row that was never
// synced still enqueues a delete; the server treats an unknown id as a no-op.
func (s *captureService) DeleteRequest(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete request: empty id")
	}

	if err := s.requests.DeleteRequest(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete request %s: %w", id, err)
	}

	if err := s.queue.Enqueue(ctx, EntityTypeRequest, id, models.ActionDelete); err != nil {
		return err
	}

	s.bus.Publish(events.TopicMutationCaptured, models.PendingChange{
		EntityType: EntityTypeRequest,
		EntityID:   id,
		Action:     models.ActionDelete,
		EnqueuedAt: s.now().UnixMilli(),
	})

	return nil
}
