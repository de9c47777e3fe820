package store

import (
	"context"
	"fmt"

	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/models"
)

type queueRepository struct {
	*DB
	logger *logger.Logger
}

func NewQueueRepository(db *DB, logger *logger.Logger) QueueRepository {
	return &queueRepository{
		DB:     db,
		logger: logger,
	}
}

func (q *queueRepository) UpsertChange(ctx context.Context, change models.PendingChange) error {
	log := logger.FromContext(ctx)

	_, err := q.DB.ExecContext(ctx, upsertQueueEntry,
		change.EntityType,
		change.EntityID,
		string(change.Action),
		change.EnqueuedAt,
	)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.UpsertChange").
			Str("entity_type", change.EntityType).
			Str("entity_id", change.EntityID).
			Msg("failed to execute upsert for queue entry")
		return fmt.Errorf("failed to upsert queue entry (%s): %w", change.Key(), err)
	}

	return nil
}

func (q *queueRepository) AllChanges(ctx context.Context) ([]models.PendingChange, error) {
	log := logger.FromContext(ctx)

	rows, err := q.DB.QueryContext(ctx, getAllQueueEntries)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.AllChanges").
			Msg("failed to query queue entries")
		return nil, fmt.Errorf("failed to query queue entries: %w", err)
	}
	defer rows.Close()

	var changes []models.PendingChange
	for rows.Next() {
		var (
			change models.PendingChange
			action string
		)
		if err = rows.Scan(&change.EntityType, &change.EntityID, &action, &change.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}

		change.Action, err = models.ParseChangeAction(action)
		if err != nil {
			// A row that slipped past the CHECK constraint is dropped
			// rather than poisoning every future cycle.
			log.Warn().
				Str("func", "queueRepository.AllChanges").
				Str("entity_id", change.EntityID).
				Str("action", action).
				Msg("skipping queue entry with unknown action")
			continue
		}

		changes = append(changes, change)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue entries: %w", err)
	}

	return changes, nil
}

func (q *queueRepository) DeleteChange(ctx context.Context, entityType, entityID string) error {
	log := logger.FromContext(ctx)

	if _, err := q.DB.ExecContext(ctx, deleteQueueEntry, entityType, entityID); err != nil {
		log.Err(err).
			Str("func", "queueRepository.DeleteChange").
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Msg("failed to delete queue entry")
		return fmt.Errorf("failed to delete queue entry (%s:%s): %w", entityType, entityID, err)
	}

	return nil
}

func (q *queueRepository) ClearChanges(ctx context.Context) error {
	log := logger.FromContext(ctx)

	if _, err := q.DB.ExecContext(ctx, clearQueue); err != nil {
		log.Err(err).
			Str("func", "queueRepository.ClearChanges").
			Msg("failed to clear queue")
		return fmt.Errorf("failed to clear queue: %w", err)
	}

	return nil
}
