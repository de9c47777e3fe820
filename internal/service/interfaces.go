// SPDX-License-Identifier: Apache-2.0

// Package service implements the sync and resilience layer of the req-ledger
// agent: the durable change queue, the watermark-based sync engine, bulk
// transfer, the trigger scheduler, and the category-scoped retry monitor.
package service

import (
	"context"

	"github.com/reqledger/go-req-ledger/internal/config"
	"github.com/reqledger/go-req-ledger/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// ChangeQueue is the durable, deduplicated queue of local mutations awaiting
// delivery. At most one entry exists per (entityType, entityID); enqueueing
// an already-queued key merges into the existing entry.
type ChangeQueue interface {
	// Enqueue records a local mutation. The entry is persisted before
	// Enqueue returns, so a crash never loses an acknowledged change.
	Enqueue(ctx context.Context, entityType, entityID string, action models.ChangeAction) error
	// Snapshot returns the queued changes ordered oldest first.
	Snapshot() []models.PendingChange
	// Remove drops one key from the queue after the server acknowledged it.
	Remove(ctx context.Context, entityType, entityID string) error
	// Clear empties the queue unconditionally.
	Clear(ctx context.Context) error
	// Len returns the number of queued entries.
	Len() int
}

// CaptureService is the local write path: it persists captured request rows
// and feeds the change queue.
type CaptureService interface {
	// RecordRequest upserts a captured request (with optional timings and
	// headers), enqueues the corresponding change, and announces the
	// mutation on the bus.
	RecordRequest(ctx context.Context, rec models.Record) error
	// DeleteRequest removes a row locally and enqueues a delete for the
	// server.
	DeleteRequest(ctx context.Context, id string) error
	// ListRequests returns local rows matching the filter set, for host-side
	// inspection. Purely local, never touches the network.
	ListRequests(ctx context.Context, query models.DownloadQuery) ([]models.Record, error)
}

// SyncEngine runs the two-phase sync cycle: flush the change queue, then
// exchange the watermark delta with the server and reconcile its updates.
type SyncEngine interface {
	// SyncNow runs one cycle. At most one cycle is in flight at any time;
	// an overlapping trigger is dropped or queued per the overlap policy.
	SyncNow(ctx context.Context) error
	// Status reports the current sync state snapshot.
	Status(ctx context.Context) (models.SyncStatus, error)
	// UpdateConfig applies a partial sync configuration update, validates
	// the result, and announces the change on the bus.
	UpdateConfig(ctx context.Context, patch config.SyncPatch) (config.Sync, error)
	// Config returns the effective sync configuration.
	Config() config.Sync
}

// BulkService moves the whole dataset in either direction, bypassing the
// incremental watermark protocol.
type BulkService interface {
	// PushAll replays every local row to the server in one full-upload
	// payload. On success the change queue is cleared and the watermark
	// advanced.
	PushAll(ctx context.Context) (models.SyncResult, error)
	// PullAll fetches server rows matching query and merges them into the
	// local store. Returns the number of rows applied.
	PullAll(ctx context.Context, query models.DownloadQuery) (int, error)
	// SyncNamed triggers a server-side sync of one named resource kind and
	// publishes lifecycle events under that kind's namespace.
	SyncNamed(ctx context.Context, resourceKind string, options any) (models.SyncResult, error)
}

// RetryStrategy describes how the monitor reacts to repeated failures of
// one (category, kind) pair.
type RetryStrategy struct {
	// MaxRetries bounds the retry attempts before the monitor gives up.
	MaxRetries int
	// BackoffMs is the delay before the first retry.
	BackoffMs int64
	// Multiplier scales the delay for each subsequent attempt.
	Multiplier float64
}

// Monitor is the resilience layer: it classifies failures, keeps a bounded
// error log, and schedules category-scoped retries with exponential backoff.
type Monitor interface {
	// Failure records err under category, classifies its kind, and arms a
	// retry timer if a strategy matches.
	Failure(category string, err error)
	// Success resets the attempt counter and cancels any pending retry for
	// category.
	Success(category string)
	// RegisterStrategy installs a retry strategy for a (category, kind)
	// pair. kind "*" matches any failure kind within the category.
	RegisterStrategy(category, kind string, s RetryStrategy)
	// Errors returns a copy of the bounded error log, oldest first.
	Errors() []models.ErrorRecord
	// Sweep purges aged error records and resets all attempt counters.
	Sweep()
	// Close cancels all pending retry timers.
	Close()
}

// ConnectivityProbe reports whether the device currently has network
// connectivity. A nil probe is treated as always online.
type ConnectivityProbe interface {
	Online() bool
}

// Scheduler owns every sync trigger source: the periodic interval, the
// mutation threshold, lifecycle events, and retry redo signals.
type Scheduler interface {
	// Run blocks until ctx is cancelled, dispatching sync triggers as they
	// fire.
	Run(ctx context.Context) error
	// TriggerSync fires a manual trigger, subject to the usual guards.
	TriggerSync(ctx context.Context) error
}
