package service

import "errors"

var (
	// ErrSyncDisabled is returned when a sync trigger fires while
	// Sync.Enabled is false.
	ErrSyncDisabled = errors.New("sync is disabled")

	// ErrSyncInFlight is returned under the drop overlap policy when a
	// trigger arrives while a cycle is already running.
	ErrSyncInFlight = errors.New("sync cycle already in flight")

	// ErrNotAuthenticated is returned when RequireAuth is set and no valid
	// bearer token is available.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoEndpoint is returned when sync is triggered without a configured
	// server endpoint.
	ErrNoEndpoint = errors.New("sync endpoint is not configured")

	// ErrOffline is returned when the connectivity probe reports the device
	// offline at trigger time.
	ErrOffline = errors.New("device is offline")
)
