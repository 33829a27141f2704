// Package config loads the sidecar's YAML configuration, applying the same
// defaults-on-missing-file and field-level default-filling conventions the
// teacher's own config loader uses.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pii-redactor/sidecar/internal/entity"
)

// Config holds the sidecar's full configuration.
type Config struct {
	Redactor RedactorConfig `yaml:"pii_redactor"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RedactorConfig mirrors the option table the Python reference's
// load_config accepts, field for field.
type RedactorConfig struct {
	Enabled bool `yaml:"enabled"`
	// UseNER enables the Layer 2 NER scanner. The YAML key stays
	// use_presidio for drop-in compatibility with the config shape this
	// was ported from — the NER backend here isn't literally Presidio.
	UseNER         bool        `yaml:"use_presidio"`
	Language       string      `yaml:"language"`
	ScoreThreshold float64     `yaml:"score_threshold"`
	Entities       []string    `yaml:"entities"` // nil = every entity type the scanners can produce
	SkipTypes      []string    `yaml:"skip_types"`
	AllowList      []string    `yaml:"allow_list"`
	NERBundleDir   string      `yaml:"ner_bundle_dir"`
	Vault          VaultConfig `yaml:"vault"`
}

// VaultConfig selects and configures the token vault backend.
type VaultConfig struct {
	Backend string `yaml:"backend"` // "memory" or "sqlite"
	Path    string `yaml:"path"`
}

// ServerConfig holds the ambient HTTP listen address, carried regardless of
// what the redaction feature set includes.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds the ambient slog level, carried regardless of what
// the redaction feature set includes.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file. If the file doesn't exist, it
// returns a default config and no error — a sidecar should start with
// sane defaults rather than require a config file on first run.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Redactor: RedactorConfig{
			Enabled:        true,
			UseNER:         true,
			Language:       "en",
			ScoreThreshold: 0.35,
			Vault: VaultConfig{
				Backend: "memory",
				Path:    "vault.db",
			},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8787"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Redactor.Language == "" {
		cfg.Redactor.Language = "en"
	}
	if cfg.Redactor.ScoreThreshold == 0 {
		cfg.Redactor.ScoreThreshold = 0.35
	}
	if cfg.Redactor.Vault.Backend == "" {
		cfg.Redactor.Vault.Backend = "memory"
	}
	if cfg.Redactor.Vault.Backend == "sqlite" && cfg.Redactor.Vault.Path == "" {
		cfg.Redactor.Vault.Path = "vault.db"
	}
}

// SkipTypeSet renders SkipTypes as the set resolver.Resolve wants.
func (r RedactorConfig) SkipTypeSet() map[entity.Type]bool {
	if len(r.SkipTypes) == 0 {
		return nil
	}
	out := make(map[entity.Type]bool, len(r.SkipTypes))
	for _, t := range r.SkipTypes {
		out[entity.Type(t)] = true
	}
	return out
}

// EntityTypeSet renders Entities (the NER scanner's allow-list of types to
// emit) as the set ner.Config wants. A nil Entities means "every type the
// model can produce" — callers should leave ner.Config.AllowedTypes nil in
// that case rather than use an empty-but-non-nil map.
func (r RedactorConfig) EntityTypeSet() map[entity.Type]bool {
	if len(r.Entities) == 0 {
		return nil
	}
	out := make(map[entity.Type]bool, len(r.Entities))
	for _, t := range r.Entities {
		out[entity.Type(t)] = true
	}
	return out
}

// AllowListSet renders AllowList as the set the redactor filters against.
func (r RedactorConfig) AllowListSet() map[string]bool {
	if len(r.AllowList) == 0 {
		return nil
	}
	out := make(map[string]bool, len(r.AllowList))
	for _, v := range r.AllowList {
		out[v] = true
	}
	return out
}
