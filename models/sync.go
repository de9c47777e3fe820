package models

import (
	"encoding/json"
	"fmt"
)

// ChangeAction is the closed set of operations a pending local change can
// carry. Unknown strings fail to parse instead of falling through.
type ChangeAction string

const (
	ActionSave   ChangeAction = "save"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// ParseChangeAction validates a wire/storage string against the closed
// action set.
func ParseChangeAction(s string) (ChangeAction, error) {
	switch a := ChangeAction(s); a {
	case ActionSave, ActionUpdate, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("unknown change action %q", s)
	}
}

// PendingChange is one durable queue entry. The queue holds at most one
// entry per (EntityType, EntityID); a later enqueue for the same key
// replaces Action and EnqueuedAt.
type PendingChange struct {
	EntityType string       `json:"entity_type"`
	EntityID   string       `json:"entity_id"`
	Action     ChangeAction `json:"action"`
	EnqueuedAt int64        `json:"enqueued_at"`
}

// Key returns the dedup key of a pending change.
func (c PendingChange) Key() string {
	return c.EntityType + ":" + c.EntityID
}

// SyncCursor is the persisted watermark state. LastSyncTimestamp is
// monotonically non-decreasing; DeviceID is generated exactly once and is
// stable across restarts.
type SyncCursor struct {
	LastSyncTimestamp int64  `json:"last_sync_timestamp"`
	DeviceID          string `json:"device_id"`
}

// SyncPayload is the wire body for delta and full-upload exchanges.
type SyncPayload struct {
	Records       []Record `json:"records"`
	Timestamp     int64    `json:"timestamp"`
	DeviceID      string   `json:"device_id"`
	ClientVersion string   `json:"client_version"`
	FullUpload    bool     `json:"full_upload,omitempty"`
}

// EncryptedEnvelope replaces a SyncPayload on the wire when transit
// encryption is enabled. Data is the ciphertext of the serialized payload.
type EncryptedEnvelope struct {
	Encrypted bool   `json:"encrypted"`
	Data      string `json:"data"`
}

// ChangeRecord is one queue-phase item: the action plus the full current
// row hydrated from the store (absent for deletes).
type ChangeRecord struct {
	EntityID string       `json:"entity_id"`
	Action   ChangeAction `json:"action"`
	Record   *Record      `json:"record,omitempty"`
}

// ChangeBatch is the body posted to the type-specific queue endpoint.
type ChangeBatch struct {
	EntityType string         `json:"entity_type"`
	Changes    []ChangeRecord `json:"changes"`
	DeviceID   string         `json:"device_id"`
}

// ServerUpdateAction is the closed set of reconciliation instructions the
// server may push back in a delta response.
type ServerUpdateAction string

const (
	ServerActionCreate ServerUpdateAction = "create"
	ServerActionUpdate ServerUpdateAction = "update"
	ServerActionDelete ServerUpdateAction = "delete"
)

// ServerUpdate is one server-pushed reconciliation instruction.
type ServerUpdate struct {
	EntityType string             `json:"entity_type"`
	Action     ServerUpdateAction `json:"action"`
	EntityID   string             `json:"entity_id"`
	Data       json.RawMessage    `json:"data,omitempty"`
}

// SyncResponse is the body returned by the delta endpoint.
type SyncResponse struct {
	Updates []ServerUpdate `json:"updates,omitempty"`
}

// SyncResult summarises one completed sync cycle.
type SyncResult struct {
	ProcessedCount int `json:"processed_count"`
	FailedCount    int `json:"failed_count"`
}

// DownloadQuery parameterises a bulk pull.
type DownloadQuery struct {
	Since   int64    `json:"since"`
	Limit   int      `json:"limit"`
	Methods []string `json:"methods,omitempty"`
	URLLike string   `json:"url_like,omitempty"`
}

// DownloadResponse is the download endpoint body. When Encrypted is set the
// record list travels as ciphertext in Data and Requests is empty until the
// caller decrypts.
type DownloadResponse struct {
	Requests  []Record `json:"requests,omitempty"`
	Encrypted bool     `json:"encrypted,omitempty"`
	Data      string   `json:"data,omitempty"`
}

// SyncStatus is the snapshot returned by the status operation.
type SyncStatus struct {
	Enabled           bool   `json:"enabled"`
	Endpoint          string `json:"endpoint"`
	InFlight          bool   `json:"in_flight"`
	QueueLength       int    `json:"queue_length"`
	LastSyncTimestamp int64  `json:"last_sync_timestamp"`
	DeviceID          string `json:"device_id"`
	NextRunAt         int64  `json:"next_run_at,omitempty"`
}

// ErrorRecord is one entry of the resilience monitor's bounded error log.
type ErrorRecord struct {
	Category  string `json:"category"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Context   string `json:"context,omitempty"`
}
