// SPDX-License-Identifier: Apache-2.0

// Package adapter provides transport-layer abstractions for communicating with
// the req-ledger sync server.
//
// The primary abstraction is [ServerAdapter], which decouples the service
// layer from the underlying protocol. The package ships an HTTP/JSON
// implementation ([NewHTTPServerAdapter]) built on resty.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrUnauthorized] for 401, [ErrConflict] for 409).
package adapter

import (
	"context"

	"github.com/reqledger/go-req-ledger/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// ServerAdapter defines transport-agnostic communication with the sync
// server. Implementations are responsible for serialisation, authentication
// header management, and mapping transport-level errors to the sentinel
// values defined in this package.
type ServerAdapter interface {
	// SetEndpoint replaces the base URL used for all subsequent requests.
	// Called when the sync endpoint is reconfigured at runtime.
	SetEndpoint(endpoint string) error

	// PushChanges sends one batch of queued mutations for a single entity
	// type to the server. A 2xx response acknowledges the whole batch.
	// Returns the per-batch result reported by the server, or an error if
	// the request fails or the server responds with a non-2xx status.
	PushChanges(ctx context.Context, batch models.ChangeBatch) (models.SyncResult, error)

	// SyncDelta sends the incremental sync payload and returns the updates
	// the server has accumulated for this device since its watermark.
	// payload is either a [models.SyncPayload] or a [models.EncryptedEnvelope]
	// wrapping one.
	SyncDelta(ctx context.Context, payload any) (models.SyncResponse, error)

	// Upload replays the complete local dataset to the server. payload is
	// either a [models.SyncPayload] with FullUpload set or an encrypted
	// envelope wrapping one.
	Upload(ctx context.Context, payload any) (models.SyncResult, error)

	// Download fetches request records from the server filtered by query.
	// Returns an error if the request fails or the response cannot be
	// decoded.
	Download(ctx context.Context, query models.DownloadQuery) (models.DownloadResponse, error)

	// SyncNamed triggers a server-side sync of a single named resource kind
	// (e.g. "requests"). options is an opaque JSON-serialisable value passed
	// through to the server.
	SyncNamed(ctx context.Context, resourceKind string, options any) (models.SyncResult, error)
}

// TokenSource supplies the bearer token attached to authenticated requests.
// An empty token with a nil error means the request goes out anonymous.
type TokenSource interface {
	CurrentToken() (string, error)
}
