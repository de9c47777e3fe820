package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/reqledger/go-req-ledger/internal/crypto"
	"github.com/reqledger/go-req-ledger/internal/events"
	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/models"
)

type bulkFixture struct {
	*engineFixture
	bulk BulkService
}

func newBulkFixture(t *testing.T, ctrl *gomock.Controller) *bulkFixture {
	t.Helper()

	fx := newEngineFixture(t, ctrl, enabledSyncCfg(), "")
	bulk := NewBulkService(
		fx.requests, fx.meta, fx.queue, fx.engine, fx.adapter,
		crypto.NewCryptor(""), fx.bus, "v1-test", logger.Nop(),
	)

	return &bulkFixture{engineFixture: fx, bulk: bulk}
}

func TestBulkService_PushAllClearsQueueAndAdvancesWatermark(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fx := newBulkFixture(t, ctrl)
	ctx := context.Background()

	require.NoError(t, fx.requests.UpsertRequest(ctx, models.Record{ID: "r1", Timestamp: 100}))
	require.NoError(t, fx.requests.UpsertRequest(ctx, models.Record{ID: "r2", Timestamp: 200}))
	require.NoError(t, fx.queue.Enqueue(ctx, EntityTypeRequest, "r1", models.ActionSave))

	fx.adapter.EXPECT().Upload(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, payload any) (models.SyncResult, error) {
			p, ok := payload.(models.SyncPayload)
			require.True(t, ok)
			assert.True(t, p.FullUpload)
			assert.Len(t, p.Records, 2)
			assert.Equal(t, "dev-test", p.DeviceID)
			return models.SyncResult{ProcessedCount: 2}, nil
		})

	result, err := fx.bulk.PushAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ProcessedCount)

	assert.Zero(t, fx.queue.Len(), "full upload supersedes queued changes")
	ts, _ := fx.meta.LastSyncTimestamp(ctx)
	assert.Positive(t, ts)
}

func TestBulkService_PushAllFailureLeavesStateUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fx := newBulkFixture(t, ctrl)
	ctx := context.Background()

	require.NoError(t, fx.queue.Enqueue(ctx, EntityTypeRequest, "r1", models.ActionSave))

	fx.adapter.EXPECT().Upload(gomock.Any(), gomock.Any()).
		Return(models.SyncResult{}, errors.New("refused"))

	_, err := fx.bulk.PushAll(ctx)
	require.Error(t, err)

	assert.Equal(t, 1, fx.queue.Len())
	ts, _ := fx.meta.LastSyncTimestamp(ctx)
	assert.Zero(t, ts)
}

func TestBulkService_PullAllMergesNewestWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fx := newBulkFixture(t, ctrl)
	ctx := context.Background()

	require.NoError(t, fx.requests.UpsertRequest(ctx, models.Record{ID: "r1", URL: "local-fresh", Timestamp: 300}))

	fx.adapter.EXPECT().Download(gomock.Any(), models.DownloadQuery{Since: 10, Limit: 100}).
		Return(models.DownloadResponse{Requests: []models.Record{
			{ID: "r1", URL: "server-stale", Timestamp: 100},
			{ID: "r2", URL: "server-new", Timestamp: 200},
		}}, nil)

	applied, err := fx.bulk.PullAll(ctx, models.DownloadQuery{Since: 10, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	r1, _ := fx.requests.GetRequest(ctx, "r1")
	assert.Equal(t, "local-fresh", r1.URL)
	r2, err := fx.requests.GetRequest(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, "server-new", r2.URL)

	ts, _ := fx.meta.LastSyncTimestamp(ctx)
	assert.Positive(t, ts, "completed pull advances the watermark")
}

func TestBulkService_PullAllDecryptsFlaggedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fx := newEngineFixture(t, ctrl, enabledSyncCfg(), "")
	cryptor := crypto.NewCryptor("pull-secret")
	bulk := NewBulkService(
		fx.requests, fx.meta, fx.queue, fx.engine, fx.adapter,
		cryptor, fx.bus, "v1-test", logger.Nop(),
	)
	ctx := context.Background()

	inner, err := json.Marshal(models.DownloadResponse{Requests: []models.Record{
		{ID: "r1", URL: "server-sealed", Timestamp: 100},
	}})
	require.NoError(t, err)
	data, err := cryptor.Encrypt(inner)
	require.NoError(t, err)

	fx.adapter.EXPECT().Download(gomock.Any(), gomock.Any()).
		Return(models.DownloadResponse{Encrypted: true, Data: data}, nil)

	applied, err := bulk.PullAll(ctx, models.DownloadQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	rec, err := fx.requests.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "server-sealed", rec.URL)
}

func TestBulkService_PullAllRejectsSealedBodyWithoutKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fx := newBulkFixture(t, ctrl)

	fx.adapter.EXPECT().Download(gomock.Any(), gomock.Any()).
		Return(models.DownloadResponse{Encrypted: true, Data: "c2VhbGVkLWJvZHk="}, nil)

	_, err := fx.bulk.PullAll(context.Background(), models.DownloadQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, crypto.ErrCryptorDisabled)
}

func TestBulkService_SyncNamedPublishesNamespacedEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fx := newBulkFixture(t, ctrl)
	ctx := context.Background()

	var started, completedEvents int
	var completed events.CompletedEvent
	fx.bus.Subscribe(events.SyncTopic("settings", "started"), func(any) { started++ })
	fx.bus.Subscribe(events.SyncTopic("settings", "completed"), func(payload any) {
		completedEvents++
		completed = payload.(events.CompletedEvent)
	})

	fx.adapter.EXPECT().SyncNamed(gomock.Any(), "settings", gomock.Any()).
		Return(models.SyncResult{ProcessedCount: 4}, nil)

	result, err := fx.bulk.SyncNamed(ctx, "settings", map[string]any{"full": false})
	require.NoError(t, err)
	assert.Equal(t, 4, result.ProcessedCount)
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, completedEvents)
	assert.Equal(t, 4, completed.ItemCount)
}

func TestBulkService_SyncNamedErrorRoutesToMonitorTopic(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fx := newBulkFixture(t, ctrl)

	var failure *events.FailureEvent
	fx.bus.Subscribe(events.TopicFailure, func(payload any) {
		ev := payload.(events.FailureEvent)
		failure = &ev
	})
	var errEvents int
	fx.bus.Subscribe(events.SyncTopic("settings", "error"), func(any) { errEvents++ })

	fx.adapter.EXPECT().SyncNamed(gomock.Any(), "settings", gomock.Any()).
		Return(models.SyncResult{}, errors.New("nope"))

	_, err := fx.bulk.SyncNamed(context.Background(), "settings", nil)
	require.Error(t, err)

	require.NotNil(t, failure)
	assert.Equal(t, "settings", failure.Category)
	assert.Equal(t, 1, errEvents)
}
