package backend

import (
	"caixinha/internal/config"
)

// FromAppConfig maps the application configuration onto a backend Config.
func FromAppConfig(cfg *config.Config) Config {
	return Config{
		Type:         BackendType(cfg.DataBackend),
		CSVDataDir:   cfg.CSVDataDir,
		SQLiteDBPath: cfg.SQLiteDBPath,
	}
}
