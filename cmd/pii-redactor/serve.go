package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pii-redactor/sidecar/internal/config"
	"github.com/pii-redactor/sidecar/internal/httpserver"
	"github.com/pii-redactor/sidecar/internal/logging"
	"github.com/pii-redactor/sidecar/internal/scanner/ner"
	"github.com/pii-redactor/sidecar/internal/redactor"
	"github.com/pii-redactor/sidecar/internal/registry"
	"github.com/pii-redactor/sidecar/internal/scanner"
	"github.com/pii-redactor/sidecar/internal/scanner/regexscan"
	"github.com/pii-redactor/sidecar/internal/vault"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pii-redactor HTTP service",
		RunE:  runServe,
	}
	cmd.Flags().String("config", "", "path to a YAML config file")
	cmd.Flags().Int("port", 0, "listen port (overrides config and $PII_REDACTOR_PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return invalidArgsError("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return invalidArgsError("invalid config: %w", err)
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.Logging.Level))

	var v vault.Vault
	if cfg.Redactor.Vault.Backend == "sqlite" {
		v, err = vault.OpenSQLite(cfg.Redactor.Vault.Path)
	} else {
		v = vault.NewMemory()
	}
	if err != nil {
		return vaultUnavailableError(err)
	}

	scanners := []scanner.Scanner{regexscan.New()}
	var nerScanner *ner.Scanner
	if cfg.Redactor.UseNER {
		nerScanner = ner.New(ner.Config{
			BundleDir:      cfg.Redactor.NERBundleDir,
			ScoreThreshold: cfg.Redactor.ScoreThreshold,
			AllowedTypes:   cfg.Redactor.EntityTypeSet(),
		})
		scanners = append(scanners, nerScanner)
		go func() {
			if err := nerScanner.Warm(); err != nil {
				logger.Warn("NER model failed to load, continuing regex-only", "error", err)
			}
		}()
	}

	reg := registry.New(scanners, registry.WithLogger(logger))
	red := redactor.New(reg, v, redactor.Config{
		SkipTypes: cfg.Redactor.SkipTypeSet(),
		AllowList: cfg.Redactor.AllowListSet(),
	})
	pipeline := redactor.NewPipeline(red, v)

	srv := httpserver.New(cfg, v, pipeline, nerScanner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return vaultUnavailableError(err)
	}
	return nil
}

func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Addr = fmt.Sprintf("127.0.0.1:%d", port)
	} else if p := os.Getenv("PII_REDACTOR_PORT"); p != "" {
		cfg.Server.Addr = fmt.Sprintf("127.0.0.1:%s", p)
	}

	if noPresidio, _ := cmd.Flags().GetBool("no-presidio"); noPresidio {
		cfg.Redactor.UseNER = false
	}
	if os.Getenv("PII_REDACTOR_NO_PRESIDIO") == "1" {
		cfg.Redactor.UseNER = false
	}

	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" && cmd.Flags().Changed("db") {
		cfg.Redactor.Vault.Backend = "sqlite"
		cfg.Redactor.Vault.Path = dbPath
	}
	if dbPath := os.Getenv("PII_REDACTOR_DB"); dbPath != "" {
		cfg.Redactor.Vault.Backend = "sqlite"
		cfg.Redactor.Vault.Path = dbPath
	}

	if threshold := os.Getenv("PII_REDACTOR_THRESHOLD"); threshold != "" {
		var f float64
		if _, err := fmt.Sscanf(threshold, "%f", &f); err == nil {
			cfg.Redactor.ScoreThreshold = f
		}
	}

	if skipTypes, _ := cmd.Flags().GetString("skip-types"); skipTypes != "" {
		cfg.Redactor.SkipTypes = strings.Split(skipTypes, ",")
	}
	if allowList, _ := cmd.Flags().GetString("allow-list"); allowList != "" {
		cfg.Redactor.AllowList = strings.Split(allowList, ",")
	}

	return cfg, nil
}
