package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/store"
	"github.com/reqledger/go-req-ledger/models"
)

type changeQueue struct {
	repo   store.QueueRepository
	logger *logger.Logger

	mu      sync.RWMutex
	entries map[string]models.PendingChange

	now func() time.Time
}

// NewChangeQueue builds the durable change queue and loads any entries that
// survived a previous run, so changes captured before a crash are delivered
// on the next cycle.
func NewChangeQueue(ctx context.Context, repo store.QueueRepository, logger *logger.Logger) (ChangeQueue, error) {
	q := &changeQueue{
		repo:    repo,
		logger:  logger,
		entries: make(map[string]models.PendingChange),
		now:     time.Now,
	}

	persisted, err := repo.AllChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persisted queue: %w", err)
	}
	for _, c := range persisted {
		q.entries[c.Key()] = c
	}

	if len(persisted) > 0 {
		logger.Info().Int("count", len(persisted)).Msg("rehydrated pending changes from previous run")
	}

	return q, nil
}

// Enqueue implements [ChangeQueue]. A second enqueue for the same key merges
// into the existing entry: the action and enqueue time are replaced, except
// that an update arriving on top of a queued save keeps the save, since the
// row has never reached the server and still needs to be created there.
func (q *changeQueue) Enqueue(ctx context.Context, entityType, entityID string, action models.ChangeAction) error {
	change := models.PendingChange{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		EnqueuedAt: q.now().UnixMilli(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if prev, ok := q.entries[change.Key()]; ok {
		if prev.Action == models.ActionSave && action == models.ActionUpdate {
			change.Action = models.ActionSave
		}
	}

	if err := q.repo.UpsertChange(ctx, change); err != nil {
		return fmt.Errorf("persist pending change %s: %w", change.Key(), err)
	}
	q.entries[change.Key()] = change

	return nil
}

// Snapshot implements [ChangeQueue].
func (q *changeQueue) Snapshot() []models.PendingChange {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]models.PendingChange, 0, len(q.entries))
	for _, c := range q.entries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EnqueuedAt != out[j].EnqueuedAt {
			return out[i].EnqueuedAt < out[j].EnqueuedAt
		}
		return out[i].Key() < out[j].Key()
	})

	return out
}

// Remove implements [ChangeQueue]. It deletes the persisted row first; the
// in-memory entry is dropped only once the delete is durable.
func (q *changeQueue) Remove(ctx context.Context, entityType, entityID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.repo.DeleteChange(ctx, entityType, entityID); err != nil {
		return fmt.Errorf("delete pending change: %w", err)
	}
	delete(q.entries, entityType+":"+entityID)

	return nil
}

// Clear implements [ChangeQueue].
func (q *changeQueue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.repo.ClearChanges(ctx); err != nil {
		return fmt.Errorf("clear change queue: %w", err)
	}
	q.entries = make(map[string]models.PendingChange)

	return nil
}

// Len implements [ChangeQueue].
func (q *changeQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return len(q.entries)
}
