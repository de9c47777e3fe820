package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseJSON_FullConfig(t *testing.T) {
	path := writeTempJSON(t, `{
		"app": {"version": "2.0.0", "encryption_passphrase": "secret"},
		"storage": {"db": {"dsn": "file:json.db"}},
		"adapter": {"request_timeout": "20s"},
		"sync": {
			"enabled": true,
			"endpoint": "https://sync.example.com",
			"interval": "10m",
			"change_threshold": 50,
			"require_auth": true,
			"encrypt_data": true,
			"overlap_policy": "queue"
		},
		"monitor": {"error_log_size": 64, "sweep_interval": "30m", "record_max_age": "12h"},
		"admin": {"address": "127.0.0.1:9200"}
	}`)

	cfg, err := parseJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", cfg.App.Version)
	assert.Equal(t, "secret", cfg.App.EncryptionPassphrase)
	assert.Equal(t, "file:json.db", cfg.Storage.DB.DSN)
	assert.Equal(t, 20*time.Second, cfg.Adapter.RequestTimeout)
	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 50, cfg.Sync.ChangeThreshold)
	assert.True(t, cfg.Sync.RequireAuth)
	assert.True(t, cfg.Sync.EncryptData)
	assert.Equal(t, 64, cfg.Monitor.ErrorLogSize)
	assert.Equal(t, 30*time.Minute, cfg.Monitor.SweepInterval)
	assert.Equal(t, "127.0.0.1:9200", cfg.Admin.Address)
}

func TestParseJSON_NumericDuration(t *testing.T) {
	// Durations may also arrive as nanosecond numbers.
	path := writeTempJSON(t, `{"adapter": {"request_timeout": 1000000000}}`)

	cfg, err := parseJSON(path)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Adapter.RequestTimeout)
}

func TestParseJSON_MissingFile(t *testing.T) {
	_, err := parseJSON(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestParseJSON_MalformedBody(t *testing.T) {
	path := writeTempJSON(t, `{"sync": `)
	_, err := parseJSON(path)
	require.Error(t, err)
}

func TestSyncValidate(t *testing.T) {
	tests := []struct {
		name    string
		sync    Sync
		wantErr bool
	}{
		{"disabled empty", Sync{}, false},
		{"enabled complete", Sync{Enabled: true, Endpoint: "https://s", Interval: time.Minute}, false},
		{"enabled no endpoint", Sync{Enabled: true, Interval: time.Minute}, true},
		{"enabled no interval", Sync{Enabled: true, Endpoint: "https://s"}, true},
		{"bad policy", Sync{OverlapPolicy: "sometimes"}, true},
		{"negative threshold", Sync{ChangeThreshold: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sync.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSyncConfigs)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
