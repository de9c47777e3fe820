package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/utils"
)

// Keys of the sync_meta table.
const (
	metaLastSyncTimestamp = "lastSyncTimestamp"
	metaDeviceID          = "deviceId"
	metaSyncDueAt         = "syncDueAt"
)

type metaRepository struct {
	*DB
	uuid   *utils.UUIDGenerator
	logger *logger.Logger
}

func NewMetaRepository(db *DB, logger *logger.Logger) MetaRepository {
	return &metaRepository{
		DB:     db,
		uuid:   utils.NewUUIDGenerator(),
		logger: logger,
	}
}

func (m *metaRepository) LastSyncTimestamp(ctx context.Context) (int64, error) {
	return m.getInt(ctx, metaLastSyncTimestamp)
}

func (m *metaRepository) SetLastSyncTimestamp(ctx context.Context, ts int64) error {
	return m.set(ctx, metaLastSyncTimestamp, strconv.FormatInt(ts, 10))
}

// DeviceID returns the stable device identifier, generating it exactly once.
// The generated id is persisted before being returned so a crash between
// generation and first use cannot mint a second identity.
func (m *metaRepository) DeviceID(ctx context.Context) (string, error) {
	id, err := m.get(ctx, metaDeviceID)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}

	id = m.uuid.Generate()
	if err = m.set(ctx, metaDeviceID, id); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}

	m.logger.Info().Str("device_id", id).Msg("generated new device id")
	return id, nil
}

func (m *metaRepository) SyncDueAt(ctx context.Context) (int64, error) {
	return m.getInt(ctx, metaSyncDueAt)
}

func (m *metaRepository) SetSyncDueAt(ctx context.Context, ts int64) error {
	return m.set(ctx, metaSyncDueAt, strconv.FormatInt(ts, 10))
}

func (m *metaRepository) get(ctx context.Context, key string) (string, error) {
	var value string
	err := m.DB.QueryRowContext(ctx, getMetaValue, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read meta key %q: %w", key, err)
	}
	return value, nil
}

func (m *metaRepository) getInt(ctx context.Context, key string) (int64, error) {
	raw, err := m.get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("meta key %q holds non-integer value %q: %w", key, raw, err)
	}
	return value, nil
}

func (m *metaRepository) set(ctx context.Context, key, value string) error {
	log := logger.FromContext(ctx)

	if _, err := m.DB.ExecContext(ctx, setMetaValue, key, value); err != nil {
		log.Err(err).
			Str("func", "metaRepository.set").
			Str("key", key).
			Msg("failed to write meta value")
		return fmt.Errorf("failed to write meta key %q: %w", key, err)
	}
	return nil
}
