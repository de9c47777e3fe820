package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqledger/go-req-ledger/internal/auth"
	"github.com/reqledger/go-req-ledger/internal/config"
	"github.com/reqledger/go-req-ledger/internal/events"
	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/service"
	"github.com/reqledger/go-req-ledger/models"
)

type stubQueue struct {
	length  int
	cleared bool
}

func (s *stubQueue) Enqueue(context.Context, string, string, models.ChangeAction) error { return nil }
func (s *stubQueue) Snapshot() []models.PendingChange                                   { return nil }
func (s *stubQueue) Remove(context.Context, string, string) error                       { return nil }
func (s *stubQueue) Clear(context.Context) error {
	s.cleared = true
	s.length = 0
	return nil
}
func (s *stubQueue) Len() int { return s.length }

type stubCapture struct {
	recorded []models.Record
	deleted  []string
	listed   []models.Record
	gotQuery models.DownloadQuery
}

func (s *stubCapture) RecordRequest(_ context.Context, rec models.Record) error {
	s.recorded = append(s.recorded, rec)
	return nil
}

func (s *stubCapture) DeleteRequest(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCapture) ListRequests(_ context.Context, q models.DownloadQuery) ([]models.Record, error) {
	s.gotQuery = q
	return s.listed, nil
}

type stubAdminEngine struct {
	status    models.SyncStatus
	cfg       config.Sync
	patchErr  error
	gotPatch  *config.SyncPatch
	statusErr error
}

func (s *stubAdminEngine) SyncNow(context.Context) error { return nil }
func (s *stubAdminEngine) Status(context.Context) (models.SyncStatus, error) {
	return s.status, s.statusErr
}
func (s *stubAdminEngine) UpdateConfig(_ context.Context, patch config.SyncPatch) (config.Sync, error) {
	if s.patchErr != nil {
		return config.Sync{}, s.patchErr
	}
	s.gotPatch = &patch
	s.cfg = patch.Apply(s.cfg)
	return s.cfg, nil
}
func (s *stubAdminEngine) Config() config.Sync { return s.cfg }

type stubBulk struct {
	pushResult models.SyncResult
	pushErr    error
	pulled     int
	namedKind  string
}

func (s *stubBulk) PushAll(context.Context) (models.SyncResult, error) {
	return s.pushResult, s.pushErr
}
func (s *stubBulk) PullAll(_ context.Context, q models.DownloadQuery) (int, error) {
	return s.pulled, nil
}
func (s *stubBulk) SyncNamed(_ context.Context, kind string, _ any) (models.SyncResult, error) {
	s.namedKind = kind
	return models.SyncResult{ProcessedCount: 1}, nil
}

type stubScheduler struct {
	triggerErr error
	triggers   int
}

func (s *stubScheduler) Run(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }
func (s *stubScheduler) TriggerSync(context.Context) error {
	s.triggers++
	return s.triggerErr
}

type stubMonitor struct {
	errs []models.ErrorRecord
}

func (s *stubMonitor) Failure(string, error)                                 {}
func (s *stubMonitor) Success(string)                                        {}
func (s *stubMonitor) RegisterStrategy(string, string, service.RetryStrategy) {}
func (s *stubMonitor) Errors() []models.ErrorRecord                          { return s.errs }
func (s *stubMonitor) Sweep()                                                {}
func (s *stubMonitor) Close()                                                {}

type fixture struct {
	srv       *httptest.Server
	queue     *stubQueue
	capture   *stubCapture
	engine    *stubAdminEngine
	bulk      *stubBulk
	scheduler *stubScheduler
	monitor   *stubMonitor
	tokens    *auth.TokenStore
	bus       events.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fx := &fixture{
		queue:     &stubQueue{},
		capture:   &stubCapture{},
		engine:    &stubAdminEngine{cfg: config.Sync{Enabled: true, Endpoint: "http://s", OverlapPolicy: config.OverlapQueue}},
		bulk:      &stubBulk{},
		scheduler: &stubScheduler{},
		monitor:   &stubMonitor{},
		tokens:    auth.NewTokenStore(),
		bus:       events.NewBus(),
	}

	services := &service.Services{
		Queue:     fx.queue,
		Capture:   fx.capture,
		Engine:    fx.engine,
		Bulk:      fx.bulk,
		Scheduler: fx.scheduler,
		Monitor:   fx.monitor,
	}

	handler := NewHandler(services, fx.tokens, fx.bus, logger.Nop())
	fx.srv = httptest.NewServer(handler.Init())
	t.Cleanup(fx.srv.Close)

	return fx
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func TestAdmin_GetStatus(t *testing.T) {
	fx := newFixture(t)
	fx.engine.status = models.SyncStatus{Enabled: true, QueueLength: 3, DeviceID: "dev-1"}

	resp := do(t, http.MethodGet, fx.srv.URL+"/api/status", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestAdmin_SyncNowPropagatesGuardErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ok", nil, http.StatusOK},
		{"disabled", service.ErrSyncDisabled, http.StatusConflict},
		{"in flight", service.ErrSyncInFlight, http.StatusConflict},
		{"unauthenticated", service.ErrNotAuthenticated, http.StatusUnauthorized},
		{"no endpoint", service.ErrNoEndpoint, http.StatusBadRequest},
		{"offline", service.ErrOffline, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			fx.scheduler.triggerErr = tt.err

			resp := do(t, http.MethodPost, fx.srv.URL+"/api/sync/now", "")

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, 1, fx.scheduler.triggers)
		})
	}
}

func TestAdmin_PatchConfig(t *testing.T) {
	fx := newFixture(t)

	resp := do(t, http.MethodPatch, fx.srv.URL+"/api/sync/config",
		`{"endpoint":"http://new.local","change_threshold":10}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, fx.engine.gotPatch)
	require.NotNil(t, fx.engine.gotPatch.Endpoint)
	assert.Equal(t, "http://new.local", *fx.engine.gotPatch.Endpoint)
	require.NotNil(t, fx.engine.gotPatch.ChangeThreshold)
	assert.Equal(t, 10, *fx.engine.gotPatch.ChangeThreshold)
}

func TestAdmin_PatchConfigMalformedBody(t *testing.T) {
	fx := newFixture(t)

	resp := do(t, http.MethodPatch, fx.srv.URL+"/api/sync/config", `{"endpoint":`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, fx.engine.gotPatch)
}

func TestAdmin_ClearQueue(t *testing.T) {
	fx := newFixture(t)
	fx.queue.length = 4

	resp := do(t, http.MethodPost, fx.srv.URL+"/api/sync/queue/clear", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, fx.queue.cleared)
}

func TestAdmin_PushAllErrorsMapToStatus(t *testing.T) {
	fx := newFixture(t)
	fx.bulk.pushErr = service.ErrNoEndpoint

	resp := do(t, http.MethodPost, fx.srv.URL+"/api/sync/push", "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdmin_SyncNamedRoutesResourceKind(t *testing.T) {
	fx := newFixture(t)

	resp := do(t, http.MethodPost, fx.srv.URL+"/api/sync/settings", `{"full":true}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "settings", fx.bulk.namedKind)
}

func TestAdmin_CaptureRequest(t *testing.T) {
	fx := newFixture(t)

	resp := do(t, http.MethodPost, fx.srv.URL+"/api/capture",
		`{"id":"r1","method":"GET","url":"https://example.com","status_code":200}`)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, fx.capture.recorded, 1)
	assert.Equal(t, "r1", fx.capture.recorded[0].ID)
}

func TestAdmin_DeleteCapturedRequest(t *testing.T) {
	fx := newFixture(t)

	resp := do(t, http.MethodDelete, fx.srv.URL+"/api/capture/r9", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"r9"}, fx.capture.deleted)
}

func TestAdmin_ListRequestsParsesFilters(t *testing.T) {
	fx := newFixture(t)
	fx.capture.listed = []models.Record{{ID: "r1"}, {ID: "r2"}}

	resp := do(t, http.MethodGet, fx.srv.URL+"/api/requests?since=100&limit=5&methods=GET,POST&urlLike=api", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(100), fx.capture.gotQuery.Since)
	assert.Equal(t, 5, fx.capture.gotQuery.Limit)
	assert.Equal(t, []string{"GET", "POST"}, fx.capture.gotQuery.Methods)
	assert.Equal(t, "api", fx.capture.gotQuery.URLLike)
}

func TestAdmin_ListRequestsRejectsBadSince(t *testing.T) {
	fx := newFixture(t)

	resp := do(t, http.MethodGet, fx.srv.URL+"/api/requests?since=yesterday", "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdmin_SetTokenAnnouncesLogin(t *testing.T) {
	fx := newFixture(t)

	var logins int
	fx.bus.Subscribe(events.TopicLoginCompleted, func(any) { logins++ })

	resp := do(t, http.MethodPost, fx.srv.URL+"/api/auth/token", `{"token":"opaque-token-123"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, fx.tokens.IsAuthenticated())
	assert.Equal(t, 1, logins)
}

func TestAdmin_SetTokenRejectsEmpty(t *testing.T) {
	fx := newFixture(t)

	resp := do(t, http.MethodPost, fx.srv.URL+"/api/auth/token", `{"token":""}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, fx.tokens.IsAuthenticated())
}

func TestAdmin_ClearToken(t *testing.T) {
	fx := newFixture(t)
	fx.tokens.SetToken("opaque-token-123")

	resp := do(t, http.MethodDelete, fx.srv.URL+"/api/auth/token", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, fx.tokens.IsAuthenticated())
}

func TestAdmin_GetErrorsAlwaysReturnsArray(t *testing.T) {
	fx := newFixture(t)

	resp := do(t, http.MethodGet, fx.srv.URL+"/api/errors", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
