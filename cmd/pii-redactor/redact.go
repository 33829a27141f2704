package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/pii-redactor/sidecar/internal/redactor"
)

func newRedactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redact",
		Short: "Redact PII from a JSON array of chat messages read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return invalidArgsError("reading stdin: %w", err)
			}

			var messages []redactor.Message
			if err := json.Unmarshal(raw, &messages); err != nil {
				return invalidArgsError("decoding messages: %w", err)
			}

			v, err := openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			session := sessionFlag(cmd)
			pipeline := buildPipeline(cmd, v)
			redacted, err := pipeline.PreSend(cmd.Context(), session, messages)
			if err != nil {
				return vaultUnavailableError(err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(redacted)
		},
	}
}
