package store

import (
	"context"
	"fmt"

	"github.com/reqledger/go-req-ledger/internal/config"
	"github.com/reqledger/go-req-ledger/internal/logger"
)

// Storages groups all ledger repositories into a single value that can be
// passed around the service layer.
type Storages struct {
	// Requests is the SQLite-backed repository for captured request rows,
	// their timing breakdowns and headers.
	Requests RequestRepository
	// Queue is the durable change queue backing table.
	Queue QueueRepository
	// Meta holds the sync cursor, device identity and scheduler
	// bookkeeping.
	Meta MetaRepository
}

// NewStorages initialises the storage layer using the supplied configuration
// and logger. It performs the following steps:
//  1. Opens an SQLite connection to the DSN in cfg.DB.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs and returns a [Storages] value wired to fresh
//     repositories.
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.Storage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(context.Background(), cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		Requests: NewRequestRepository(db, logger),
		Queue:    NewQueueRepository(db, logger),
		Meta:     NewMetaRepository(db, logger),
	}, nil
}
