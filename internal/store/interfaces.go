package store

import (
	"context"

	"github.com/reqledger/go-req-ledger/models"
)

// RequestRepository is the row-store contract consumed by the capture path,
// the sync engine, and bulk transfer.
type RequestRepository interface {
	// UpsertRequest inserts or fully replaces a captured request row.
	UpsertRequest(ctx context.Context, rec models.Record) error
	// GetRequest returns a single row by id, or ErrNotFound.
	GetRequest(ctx context.Context, id string) (models.Record, error)
	// GetRequestsSince returns all rows whose updated_at watermark exceeds
	// since, ordered by watermark.
	GetRequestsSince(ctx context.Context, since int64) ([]models.Record, error)
	// QueryRequests returns rows matching the download filter set.
	QueryRequests(ctx context.Context, q models.DownloadQuery) ([]models.Record, error)
	// DeleteRequest removes a row (and its timings/headers via cascade).
	DeleteRequest(ctx context.Context, id string) error

	UpsertTimings(ctx context.Context, t models.Timings) error
	GetTimings(ctx context.Context, requestID string) (models.Timings, error)
	UpsertHeaders(ctx context.Context, requestID string, headers []models.Header) error
	GetHeaders(ctx context.Context, requestID string) ([]models.Header, error)
}

// QueueRepository persists the durable change queue.
type QueueRepository interface {
	// UpsertChange merges a pending change into the queue table, replacing
	// action and enqueued_at for an existing (entity_type, entity_id) key.
	UpsertChange(ctx context.Context, change models.PendingChange) error
	// AllChanges loads the whole queue, oldest first.
	AllChanges(ctx context.Context) ([]models.PendingChange, error)
	// DeleteChange removes one key from the queue.
	DeleteChange(ctx context.Context, entityType, entityID string) error
	// ClearChanges empties the queue unconditionally.
	ClearChanges(ctx context.Context) error
}

// MetaRepository persists the sync cursor and scheduler bookkeeping.
type MetaRepository interface {
	// LastSyncTimestamp returns the persisted watermark, zero at first run.
	LastSyncTimestamp(ctx context.Context) (int64, error)
	// SetLastSyncTimestamp advances the watermark.
	SetLastSyncTimestamp(ctx context.Context, ts int64) error
	// DeviceID returns the stable device identifier, generating and
	// persisting it on first call.
	DeviceID(ctx context.Context) (string, error)
	// SyncDueAt returns the persisted next-run time in Unix milliseconds,
	// zero when never scheduled.
	SyncDueAt(ctx context.Context) (int64, error)
	// SetSyncDueAt persists the next-run time.
	SetSyncDueAt(ctx context.Context, ts int64) error
}
