// SPDX-License-Identifier: Apache-2.0

package config

// validate checks that the final merged [StructuredConfig] satisfies all
// agent invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or a sentinel error otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if err := cfg.Sync.Validate(); err != nil {
		return err
	}

	if cfg.Monitor.ErrorLogSize <= 0 || cfg.Monitor.SweepInterval <= 0 {
		return ErrInvalidMonitorConfigs
	}

	return nil
}

// Validate checks the sync section alone. Exported because the same rules
// apply to runtime partial updates, not only to startup loading.
func (s Sync) Validate() error {
	switch s.OverlapPolicy {
	case "", OverlapDrop, OverlapQueue:
	default:
		return ErrInvalidSyncConfigs
	}

	if s.Enabled {
		if s.Endpoint == "" || s.Interval <= 0 {
			return ErrInvalidSyncConfigs
		}
	}

	if s.ChangeThreshold < 0 {
		return ErrInvalidSyncConfigs
	}

	return nil
}
