// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv fills cfg from environment variables. Variable names come from
// the `env` and `envPrefix` tags on [StructuredConfig] and its sections,
// so SYNC_ENDPOINT lands in Sync.Endpoint and so on.
func parseEnv(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env config: %w", err)
	}

	return nil
}
