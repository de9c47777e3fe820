package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidStorageConfigs indicates invalid local storage settings
	// (for example, an empty DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidAdapterConfigs indicates invalid transport settings
	// (for example, a missing request timeout).
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidSyncConfigs indicates invalid sync engine settings
	// (for example, sync enabled without an endpoint, or an unknown
	// overlap policy).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidMonitorConfigs indicates invalid resilience monitor
	// settings (for example, a non-positive error log size).
	ErrInvalidMonitorConfigs = errors.New("invalid monitor configuration")
)
