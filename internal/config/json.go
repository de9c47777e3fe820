package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	App struct {
		Version              string `json:"version"`
		EncryptionPassphrase string `json:"encryption_passphrase"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Adapter struct {
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"adapter,omitempty"`

	Sync struct {
		Enabled         bool     `json:"enabled"`
		Endpoint        string   `json:"endpoint"`
		Interval        Duration `json:"interval"`
		ChangeThreshold int      `json:"change_threshold"`
		RequireAuth     bool     `json:"require_auth"`
		EncryptData     bool     `json:"encrypt_data"`
		IncludeTimings  bool     `json:"include_timings"`
		IncludeHeaders  bool     `json:"include_headers"`
		OverlapPolicy   string   `json:"overlap_policy"`
	} `json:"sync,omitempty"`

	Monitor struct {
		ErrorLogSize  int      `json:"error_log_size"`
		SweepInterval Duration `json:"sweep_interval"`
		RecordMaxAge  Duration `json:"record_max_age"`
	} `json:"monitor,omitempty"`

	Admin struct {
		Address string `json:"address"`
	} `json:"admin,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			Version:              jsonCfg.App.Version,
			EncryptionPassphrase: jsonCfg.App.EncryptionPassphrase,
		},
		Storage: Storage{
			DB: DB{DSN: jsonCfg.Storage.DB.DSN},
		},
		Adapter: Adapter{
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
		},
		Sync: Sync{
			Enabled:         jsonCfg.Sync.Enabled,
			Endpoint:        jsonCfg.Sync.Endpoint,
			Interval:        time.Duration(jsonCfg.Sync.Interval),
			ChangeThreshold: jsonCfg.Sync.ChangeThreshold,
			RequireAuth:     jsonCfg.Sync.RequireAuth,
			EncryptData:     jsonCfg.Sync.EncryptData,
			IncludeTimings:  jsonCfg.Sync.IncludeTimings,
			IncludeHeaders:  jsonCfg.Sync.IncludeHeaders,
			OverlapPolicy:   jsonCfg.Sync.OverlapPolicy,
		},
		Monitor: Monitor{
			ErrorLogSize:  jsonCfg.Monitor.ErrorLogSize,
			SweepInterval: time.Duration(jsonCfg.Monitor.SweepInterval),
			RecordMaxAge:  time.Duration(jsonCfg.Monitor.RecordMaxAge),
		},
		Admin:        Admin{Address: jsonCfg.Admin.Address},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling
// from strings like "1h", "30s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
