package commands

import (
	"fmt"

	"github.com/symcached/symcached/internal/config"
	"github.com/symcached/symcached/internal/logger"
)

// initLogger initializes the structured logger from configuration.
func initLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// configSource describes the config source for a single startup log line:
// the --config path when given, otherwise "defaults + environment" (a
// symcached.yaml found by discovery is not named).
func configSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	return "defaults + environment"
}
