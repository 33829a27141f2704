package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks a loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}

	if cfg.Redactor.ScoreThreshold < 0 || cfg.Redactor.ScoreThreshold > 1 {
		return fmt.Errorf("pii_redactor.score_threshold must be in [0,1], got %v", cfg.Redactor.ScoreThreshold)
	}

	if err := validateVaultConfig(cfg.Redactor.Vault); err != nil {
		return err
	}

	if err := validateLoggingConfig(cfg.Logging); err != nil {
		return err
	}

	return nil
}

func validateVaultConfig(v VaultConfig) error {
	switch strings.ToLower(strings.TrimSpace(v.Backend)) {
	case "memory":
		return nil
	case "sqlite":
		if strings.TrimSpace(v.Path) == "" {
			return errors.New("vault.path must be set when vault.backend is sqlite")
		}
		return nil
	default:
		return fmt.Errorf("vault.backend must be memory or sqlite, got %q", v.Backend)
	}
}

func validateLoggingConfig(l LoggingConfig) error {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", l.Level)
	}
}
