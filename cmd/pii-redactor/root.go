// Package main provides the pii-redactor CLI: a single entry point with one
// subcommand per sidecar operation, plus serve for running the HTTP
// service described in the module's external interface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitInvalidArgs, exitVaultUnavailable, and exitOther are the process exit
// codes the external interface assigns beyond the default 0/1 success/error
// pair cobra already gives us.
const (
	exitInvalidArgs      = 2
	exitVaultUnavailable = 3
	exitOther            = 1
)

func defaultDBPath() string {
	if v := os.Getenv("PII_REDACTOR_DB"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "vault.db"
	}
	return home + "/.pii-redactor/vault.db"
}

// NewRootCmd builds the root command and registers every subcommand.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pii-redactor",
		Short:         "PII detection, tokenization, and rehydration for LLM pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("session-id", "default", "session ID")
	cmd.PersistentFlags().String("db", defaultDBPath(), "SQLite vault path (empty uses an in-memory vault)")
	cmd.PersistentFlags().Bool("no-presidio", false, "disable the NER scanner (regex-only)")
	cmd.PersistentFlags().String("ner-bundle-dir", "", "NER model bundle directory")
	cmd.PersistentFlags().Float64("threshold", 0.35, "minimum score for a non-deterministic detection")
	cmd.PersistentFlags().String("language", "en", "language code passed to the NER scanner")
	cmd.PersistentFlags().String("skip-types", "", "comma-separated entity types to never tokenize")
	cmd.PersistentFlags().String("allow-list", "", "comma-separated values to never tokenize")

	cmd.AddCommand(newRedactCmd())
	cmd.AddCommand(newRedactTextCmd())
	cmd.AddCommand(newRehydrateCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newDumpCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute runs the root command and translates a returned *cliError into
// the external interface's exit code, defaulting to exitOther for any
// plain error a subcommand returns.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ce *cliError
		if asCLIError(err, &ce) {
			return ce.code
		}
		return exitOther
	}
	return 0
}

// cliError pairs an error with the exit code it should produce, so
// subcommands can signal invalid-argument (2) and vault-unavailable (3)
// distinctly from the catch-all failure code (1) without cobra's plain
// error return losing that information.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func invalidArgsError(format string, args ...any) error {
	return &cliError{code: exitInvalidArgs, err: fmt.Errorf(format, args...)}
}

func vaultUnavailableError(err error) error {
	return &cliError{code: exitVaultUnavailable, err: fmt.Errorf("vault unavailable: %w", err)}
}

func asCLIError(err error, target **cliError) bool {
	for err != nil {
		if ce, ok := err.(*cliError); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
