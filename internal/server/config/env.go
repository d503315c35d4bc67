package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every environment variable read by the server,
// e.g. AUTHKEEPER_SECRET_KEY.
const EnvPrefix = "AUTHKEEPER_"

// parseEnv loads a .env file from the working directory when present and
// then overlays AUTHKEEPER_* variables. Unset variables keep their value.
func parseEnv(config *Config) error {
	_ = godotenv.Load()

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
