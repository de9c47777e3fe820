// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigBuilder_DefaultsFillHoles(t *testing.T) {
	cfg, err := newConfigBuilder().withDefaults().build()
	require.NoError(t, err)

	assert.Equal(t, "file:reqledger.db?_journal_mode=WAL", cfg.Storage.DB.DSN)
	assert.Equal(t, 30*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 25, cfg.Sync.ChangeThreshold)
	assert.Equal(t, OverlapQueue, cfg.Sync.OverlapPolicy)
	assert.Equal(t, 100, cfg.Monitor.ErrorLogSize)
	assert.Equal(t, time.Hour, cfg.Monitor.SweepInterval)
}

func TestConfigBuilder_FirstNonZeroWins(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{Sync: Sync{Endpoint: "https://first.example"}},
		&StructuredConfig{Sync: Sync{Endpoint: "https://second.example", Interval: time.Minute}},
	)
	cfg, err := b.withDefaults().build()
	require.NoError(t, err)

	assert.Equal(t, "https://first.example", cfg.Sync.Endpoint)
	// The hole left by the first source is filled by the second.
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
}

func TestConfigBuilder_SourceErrorPropagates(t *testing.T) {
	b := newConfigBuilder()
	b.err = errors.New("boom")

	_, err := b.withDefaults().build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestConfigBuilder_ValidationFailure(t *testing.T) {
	b := newConfigBuilder()
	// Sync enabled but no endpoint anywhere.
	b.configs = append(b.configs, &StructuredConfig{Sync: Sync{Enabled: true}})

	_, err := b.withDefaults().build()
	require.ErrorIs(t, err, ErrInvalidSyncConfigs)
}
