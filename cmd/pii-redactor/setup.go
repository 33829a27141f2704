package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/pii-redactor/sidecar/internal/entity"
	"github.com/pii-redactor/sidecar/internal/scanner/ner"
	"github.com/pii-redactor/sidecar/internal/redactor"
	"github.com/pii-redactor/sidecar/internal/registry"
	"github.com/pii-redactor/sidecar/internal/scanner"
	"github.com/pii-redactor/sidecar/internal/scanner/regexscan"
	"github.com/pii-redactor/sidecar/internal/vault"
)

// session returns the --session-id flag, which defaults to "default" and so
// is never empty by the time a command runs.
func sessionFlag(cmd *cobra.Command) string {
	id, _ := cmd.Flags().GetString("session-id")
	if id == "" {
		return "default"
	}
	return id
}

// openVault opens the vault named by --db. An empty path selects the
// in-memory backend; any other value opens (creating if necessary) a
// SQLite-backed vault at that path.
func openVault(cmd *cobra.Command) (vault.Vault, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		return vault.NewMemory(), nil
	}
	v, err := vault.OpenSQLite(path)
	if err != nil {
		return nil, vaultUnavailableError(err)
	}
	return v, nil
}

// buildPipeline wires a registry (regex plus, unless --no-presidio, NER)
// into a Redactor and wraps it in a Pipeline over v.
func buildPipeline(cmd *cobra.Command, v vault.Vault) *redactor.Pipeline {
	scanners := []scanner.Scanner{regexscan.New()}

	noPresidio, _ := cmd.Flags().GetBool("no-presidio")
	if !noPresidio {
		bundleDir, _ := cmd.Flags().GetString("ner-bundle-dir")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		scanners = append(scanners, ner.New(ner.Config{
			BundleDir:      bundleDir,
			ScoreThreshold: threshold,
		}))
	}

	reg := registry.New(scanners)
	r := redactor.New(reg, v, redactorConfig(cmd))
	return redactor.NewPipeline(r, v)
}

func redactorConfig(cmd *cobra.Command) redactor.Config {
	skipTypesFlag, _ := cmd.Flags().GetString("skip-types")
	allowListFlag, _ := cmd.Flags().GetString("allow-list")

	cfg := redactor.Config{}
	if skipTypesFlag != "" {
		cfg.SkipTypes = make(map[entity.Type]bool)
		for _, t := range strings.Split(skipTypesFlag, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.SkipTypes[entity.Type(t)] = true
			}
		}
	}
	if allowListFlag != "" {
		cfg.AllowList = make(map[string]bool)
		for _, v := range strings.Split(allowListFlag, ",") {
			if v = strings.TrimSpace(v); v != "" {
				cfg.AllowList[v] = true
			}
		}
	}
	return cfg
}
