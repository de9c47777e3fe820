package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-d database DSN for the local ledger
//	-endpoint remote sync server base URL
//	-sync-interval periodic sync cadence (e.g., "5m")
//	-change-threshold mutation count that forces an extra cycle
//	-overlap-policy mid-cycle trigger policy ("drop" or "queue")
//	-request-timeout outbound exchange timeout (e.g., "30s")
//	-admin-address local admin API listen address host:port
//	-version reported client version
//	-c/-config json file path with configs
//
// Boolean knobs (enabled, requireAuth, encryptData) are intentionally not
// exposed as flags: a merged zero-value bool is indistinguishable from an
// explicit false, so they come from the environment or the JSON file only.
func ParseFlags() *StructuredConfig {
	var databaseDSN string
	var endpoint string
	var syncInterval time.Duration
	var changeThreshold int
	var overlapPolicy string
	var requestTimeout time.Duration
	var adminAddress string
	var version string
	var jsonConfigPath string

	flag.StringVar(&databaseDSN, "d", "", "Local ledger database DSN")
	flag.StringVar(&endpoint, "endpoint", "", "Remote sync server base URL")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Periodic sync cadence (e.g., 5m)")
	flag.IntVar(&changeThreshold, "change-threshold", 0, "Mutation count that forces an extra cycle")
	flag.StringVar(&overlapPolicy, "overlap-policy", "", "Mid-cycle trigger policy: drop or queue")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Outbound exchange timeout (e.g., 30s)")
	flag.StringVar(&adminAddress, "admin-address", "", "Admin API listen address host:port")
	flag.StringVar(&version, "version", "", "Reported client version")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")

	flag.Parse()

	return &StructuredConfig{
		App: App{Version: version},
		Storage: Storage{
			DB: DB{DSN: databaseDSN},
		},
		Adapter: Adapter{RequestTimeout: requestTimeout},
		Sync: Sync{
			Endpoint:        endpoint,
			Interval:        syncInterval,
			ChangeThreshold: changeThreshold,
			OverlapPolicy:   overlapPolicy,
		},
		Admin:        Admin{Address: adminAddress},
		JSONFilePath: jsonConfigPath,
	}
}
