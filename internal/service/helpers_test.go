package service

import (
	"context"
	"sort"
	"sync"

	"github.com/reqledger/go-req-ledger/internal/store"
	"github.com/reqledger/go-req-ledger/models"
)

// In-memory repository stubs. Simpler than mockgen for state-carrying
// collaborators: the tests assert on the resulting state, not on call order.

type memRequests struct {
	mu      sync.Mutex
	rows    map[string]models.Record
	timings map[string]models.Timings
	headers map[string][]models.Header
}

func newMemRequests() *memRequests {
	return &memRequests{
		rows:    make(map[string]models.Record),
		timings: make(map[string]models.Timings),
		headers: make(map[string][]models.Header),
	}
}

func (m *memRequests) UpsertRequest(_ context.Context, rec models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Timings = nil
	rec.Headers = nil
	m.rows[rec.ID] = rec
	return nil
}

func (m *memRequests) GetRequest(_ context.Context, id string) (models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[id]
	if !ok {
		return models.Record{}, store.ErrNotFound
	}
	return rec, nil
}

func (m *memRequests) GetRequestsSince(_ context.Context, since int64) ([]models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Record
	for _, rec := range m.rows {
		if rec.Timestamp > since {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (m *memRequests) QueryRequests(ctx context.Context, q models.DownloadQuery) ([]models.Record, error) {
	return m.GetRequestsSince(ctx, q.Since)
}

func (m *memRequests) DeleteRequest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.rows, id)
	delete(m.timings, id)
	delete(m.headers, id)
	return nil
}

func (m *memRequests) UpsertTimings(_ context.Context, t models.Timings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timings[t.RequestID] = t
	return nil
}

func (m *memRequests) GetTimings(_ context.Context, requestID string) (models.Timings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timings[requestID]
	if !ok {
		return models.Timings{}, store.ErrNotFound
	}
	return t, nil
}

func (m *memRequests) UpsertHeaders(_ context.Context, requestID string, headers []models.Header) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers[requestID] = headers
	return nil
}

func (m *memRequests) GetHeaders(_ context.Context, requestID string) ([]models.Header, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.headers[requestID], nil
}

type memQueueRepo struct {
	mu      sync.Mutex
	entries map[string]models.PendingChange
}

func newMemQueueRepo() *memQueueRepo {
	return &memQueueRepo{entries: make(map[string]models.PendingChange)}
}

func (m *memQueueRepo) UpsertChange(_ context.Context, change models.PendingChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[change.Key()] = change
	return nil
}

func (m *memQueueRepo) AllChanges(_ context.Context) ([]models.PendingChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PendingChange, 0, len(m.entries))
	for _, c := range m.entries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt < out[j].EnqueuedAt })
	return out, nil
}

func (m *memQueueRepo) DeleteChange(_ context.Context, entityType, entityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, entityType+":"+entityID)
	return nil
}

func (m *memQueueRepo) ClearChanges(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]models.PendingChange)
	return nil
}

type memMeta struct {
	mu     sync.Mutex
	last   int64
	device string
	due    int64
}

func newMemMeta() *memMeta {
	return &memMeta{device: "dev-test"}
}

func (m *memMeta) LastSyncTimestamp(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, nil
}

func (m *memMeta) SetLastSyncTimestamp(_ context.Context, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = ts
	return nil
}

func (m *memMeta) DeviceID(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device, nil
}

func (m *memMeta) SyncDueAt(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.due, nil
}

func (m *memMeta) SetSyncDueAt(_ context.Context, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.due = ts
	return nil
}

type stubTokens struct {
	authenticated bool
	token         string
}

func (s stubTokens) IsAuthenticated() bool { return s.authenticated }

func (s stubTokens) CurrentToken() (string, error) { return s.token, nil }

type stubProbe struct{ online bool }

func (p stubProbe) Online() bool { return p.online }
