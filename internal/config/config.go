// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the
// req-ledger agent. It aggregates all sub-configurations and is populated by
// merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings such as the client version and
	// the transit encryption passphrase.
	App App `envPrefix:"APP_"`

	// Storage holds the local ledger database settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Adapter holds transport settings for the outbound sync client.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Sync holds the behavioral knobs of the sync engine and scheduler.
	// This is the section patched at runtime by the partial-update
	// operation.
	Sync Sync `envPrefix:"SYNC_"`

	// Monitor holds the resilience monitor settings.
	Monitor Monitor `envPrefix:"MONITOR_"`

	// Admin holds the local admin/status HTTP endpoint settings.
	Admin Admin `envPrefix:"ADMIN_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged with the values already
	// loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// Version is the client version string reported in every sync payload.
	// Env: APP_VERSION
	Version string `env:"VERSION"`

	// EncryptionPassphrase is the secret the transit encryption key is
	// derived from. Empty disables payload encryption regardless of
	// Sync.EncryptData.
	// Env: APP_ENCRYPTION_PASSPHRASE
	EncryptionPassphrase string `env:"ENCRYPTION_PASSPHRASE"`
}

// Storage groups the configuration for the local persistence backend.
type Storage struct {
	// DB holds the SQLite connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local ledger database.
type DB struct {
	// DSN is the SQLite data source name, a file path or file: URI
	// (e.g. "file:reqledger.db?_journal_mode=WAL").
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Adapter holds transport-level settings for the outbound sync client.
type Adapter struct {
	// RequestTimeout is the hard timeout applied to every outbound sync
	// exchange. An unterminated exchange would hold the single-flight lock
	// indefinitely, so this must never be zero at runtime.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Sync holds the sync engine and scheduler knobs. All fields may be patched
// at runtime through the partial-update operation.
type Sync struct {
	// Enabled gates every scheduled and manual sync trigger.
	// Env: SYNC_ENABLED
	Enabled bool `env:"ENABLED" json:"enabled,omitempty"`

	// Endpoint is the base URL of the remote sync server.
	// Env: SYNC_ENDPOINT
	Endpoint string `env:"ENDPOINT" json:"endpoint,omitempty"`

	// Interval is the periodic trigger cadence.
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL" json:"interval,omitempty"`

	// ChangeThreshold fires an extra cycle after this many captured
	// mutations. Zero disables the threshold trigger.
	// Env: SYNC_CHANGE_THRESHOLD
	ChangeThreshold int `env:"CHANGE_THRESHOLD" json:"change_threshold,omitempty"`

	// RequireAuth demands a valid bearer token before any cycle starts.
	// Env: SYNC_REQUIRE_AUTH
	RequireAuth bool `env:"REQUIRE_AUTH" json:"require_auth,omitempty"`

	// EncryptData wraps outbound payloads in the encrypted envelope when
	// the cryptor collaborator is enabled.
	// Env: SYNC_ENCRYPT_DATA
	EncryptData bool `env:"ENCRYPT_DATA" json:"encrypt_data,omitempty"`

	// IncludeTimings hydrates the timing breakdown into queue-phase rows.
	// Env: SYNC_INCLUDE_TIMINGS
	IncludeTimings bool `env:"INCLUDE_TIMINGS" json:"include_timings,omitempty"`

	// IncludeHeaders hydrates captured headers into queue-phase rows.
	// Env: SYNC_INCLUDE_HEADERS
	IncludeHeaders bool `env:"INCLUDE_HEADERS" json:"include_headers,omitempty"`

	// OverlapPolicy decides the fate of a trigger that arrives while a
	// cycle is in flight: "drop" rejects it, "queue" runs one follow-up
	// cycle immediately after the current one finishes.
	// Env: SYNC_OVERLAP_POLICY
	OverlapPolicy string `env:"OVERLAP_POLICY" json:"overlap_policy,omitempty"`
}

// Overlap policy values accepted by [Sync.OverlapPolicy].
const (
	OverlapDrop  = "drop"
	OverlapQueue = "queue"
)

// Monitor holds resilience monitor settings.
type Monitor struct {
	// ErrorLogSize bounds the in-memory error ring buffer.
	// Env: MONITOR_ERROR_LOG_SIZE
	ErrorLogSize int `env:"ERROR_LOG_SIZE"`

	// SweepInterval is the cadence of the periodic cleanup sweep that
	// purges aged error records and resets attempt counters.
	// Env: MONITOR_SWEEP_INTERVAL
	SweepInterval time.Duration `env:"SWEEP_INTERVAL"`

	// RecordMaxAge is the age past which swept error records are purged.
	// Env: MONITOR_RECORD_MAX_AGE
	RecordMaxAge time.Duration `env:"RECORD_MAX_AGE"`
}

// Admin holds settings for the local status/control HTTP endpoint.
type Admin struct {
	// Address is the listen address of the admin API, in "host:port"
	// format. Empty disables the endpoint.
	// Env: ADMIN_ADDRESS
	Address string `env:"ADDRESS"`
}

// GetConfig loads, merges, and validates the agent configuration from all
// available sources in the following priority order (first non-zero value
// wins per field):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//  4. Built-in defaults
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		withDefaults().
		build()
}

// defaults returns the built-in fallback configuration merged in last.
func defaults() *StructuredConfig {
	return &StructuredConfig{
		Storage: Storage{DB: DB{DSN: "file:reqledger.db?_journal_mode=WAL"}},
		Adapter: Adapter{RequestTimeout: 30 * time.Second},
		Sync: Sync{
			Interval:        5 * time.Minute,
			ChangeThreshold: 25,
			OverlapPolicy:   OverlapQueue,
		},
		Monitor: Monitor{
			ErrorLogSize:  100,
			SweepInterval: time.Hour,
			RecordMaxAge:  24 * time.Hour,
		},
	}
}
