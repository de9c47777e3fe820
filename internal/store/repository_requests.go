package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/models"
)

type requestRepository struct {
	*DB
	logger *logger.Logger
}

func NewRequestRepository(db *DB, logger *logger.Logger) RequestRepository {
	return &requestRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *requestRepository) UpsertRequest(ctx context.Context, rec models.Record) error {
	log := logger.FromContext(ctx)

	_, err := r.DB.ExecContext(ctx, upsertRequest,
		rec.ID,
		rec.Method,
		rec.URL,
		rec.StatusCode,
		rec.ContentType,
		rec.SizeBytes,
		rec.Page,
		rec.StartedAt,
		rec.Timestamp,
	)
	if err != nil {
		log.Err(err).
			Str("func", "requestRepository.UpsertRequest").
			Str("id", rec.ID).
			Msg("failed to execute upsert for request row")
		return fmt.Errorf("failed to upsert request (id=%s): %w", rec.ID, err)
	}

	return nil
}

func (r *requestRepository) GetRequest(ctx context.Context, id string) (models.Record, error) {
	log := logger.FromContext(ctx)

	var rec models.Record
	row := r.DB.QueryRowContext(ctx, getSingleRequest, id)
	err := row.Scan(
		&rec.ID,
		&rec.Method,
		&rec.URL,
		&rec.StatusCode,
		&rec.ContentType,
		&rec.SizeBytes,
		&rec.Page,
		&rec.StartedAt,
		&rec.Timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, ErrNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "requestRepository.GetRequest").
			Str("id", id).
			Msg("failed to scan request row")
		return models.Record{}, fmt.Errorf("failed to scan request row: %w", err)
	}

	return rec, nil
}

func (r *requestRepository) GetRequestsSince(ctx context.Context, since int64) ([]models.Record, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, getRequestsSince, since)
	if err != nil {
		log.Err(err).
			Str("func", "requestRepository.GetRequestsSince").
			Int64("since", since).
			Msg("failed to execute delta query")
		return nil, fmt.Errorf("failed to query requests since %d: %w", since, err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

func (r *requestRepository) QueryRequests(ctx context.Context, q models.DownloadQuery) ([]models.Record, error) {
	log := logger.FromContext(ctx)

	builder := sq.Select(
		"id", "method", "url", "status_code", "content_type",
		"size_bytes", "page", "started_at", "updated_at",
	).From("requests").OrderBy("updated_at")

	if q.Since > 0 {
		builder = builder.Where(sq.Gt{"updated_at": q.Since})
	}
	if len(q.Methods) > 0 {
		builder = builder.Where(sq.Eq{"method": q.Methods})
	}
	if q.URLLike != "" {
		builder = builder.Where(sq.Like{"url": "%" + q.URLLike + "%"})
	}
	if q.Limit > 0 {
		builder = builder.Limit(uint64(q.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build filtered query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "requestRepository.QueryRequests").
			Msg("failed to execute filtered query")
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

func (r *requestRepository) scanRecords(rows *sql.Rows) ([]models.Record, error) {
	var items []models.Record

	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(
			&rec.ID,
			&rec.Method,
			&rec.URL,
			&rec.StatusCode,
			&rec.ContentType,
			&rec.SizeBytes,
			&rec.Page,
			&rec.StartedAt,
			&rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan request row: %w", err)
		}
		items = append(items, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating request rows: %w", err)
	}

	return items, nil
}

func (r *requestRepository) DeleteRequest(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, deleteRequest, id); err != nil {
		log.Err(err).
			Str("func", "requestRepository.DeleteRequest").
			Str("id", id).
			Msg("failed to execute delete for request row")
		return fmt.Errorf("failed to delete request (id=%s): %w", id, err)
	}

	return nil
}

func (r *requestRepository) UpsertTimings(ctx context.Context, t models.Timings) error {
	log := logger.FromContext(ctx)

	_, err := r.DB.ExecContext(ctx, upsertTimings,
		t.RequestID,
		t.DNSMs,
		t.ConnectMs,
		t.TLSMs,
		t.TTFBMs,
		t.TotalMs,
	)
	if err != nil {
		log.Err(err).
			Str("func", "requestRepository.UpsertTimings").
			Str("request_id", t.RequestID).
			Msg("failed to execute upsert for timings row")
		return fmt.Errorf("failed to upsert timings (request_id=%s): %w", t.RequestID, err)
	}

	return nil
}

func (r *requestRepository) GetTimings(ctx context.Context, requestID string) (models.Timings, error) {
	var t models.Timings
	row := r.DB.QueryRowContext(ctx, getTimings, requestID)
	err := row.Scan(&t.RequestID, &t.DNSMs, &t.ConnectMs, &t.TLSMs, &t.TTFBMs, &t.TotalMs)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Timings{}, ErrNotFound
	}
	if err != nil {
		return models.Timings{}, fmt.Errorf("failed to scan timings row: %w", err)
	}

	return t, nil
}

// UpsertHeaders replaces the whole header set of a request in one
// transaction so a reconciliation never leaves a half-written mix of old
// and new headers.
func (r *requestRepository) UpsertHeaders(ctx context.Context, requestID string, headers []models.Header) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin headers tx: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, deleteHeaders, requestID); err != nil {
		log.Err(err).
			Str("func", "requestRepository.UpsertHeaders").
			Str("request_id", requestID).
			Msg("failed to clear existing headers")
		return fmt.Errorf("failed to clear headers (request_id=%s): %w", requestID, err)
	}

	for _, h := range headers {
		if _, err = tx.ExecContext(ctx, insertHeader, requestID, h.Name, h.Value); err != nil {
			log.Err(err).
				Str("func", "requestRepository.UpsertHeaders").
				Str("request_id", requestID).
				Str("header", h.Name).
				Msg("failed to insert header")
			return fmt.Errorf("failed to insert header (request_id=%s): %w", requestID, err)
		}
	}

	return tx.Commit()
}

func (r *requestRepository) GetHeaders(ctx context.Context, requestID string) ([]models.Header, error) {
	rows, err := r.DB.QueryContext(ctx, getHeaders, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query headers (request_id=%s): %w", requestID, err)
	}
	defer rows.Close()

	var headers []models.Header
	for rows.Next() {
		var h models.Header
		if err = rows.Scan(&h.Name, &h.Value); err != nil {
			return nil, fmt.Errorf("failed to scan header row: %w", err)
		}
		headers = append(headers, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating header rows: %w", err)
	}

	return headers, nil
}
