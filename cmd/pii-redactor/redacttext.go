package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

type redactTextOutput struct {
	Text       string `json:"text"`
	Entities   []any  `json:"entities"`
	TokenCount int    `json:"token_count"`
}

func newRedactTextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redact-text",
		Short: "Redact PII from plain text read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return invalidArgsError("reading stdin: %w", err)
			}

			v, err := openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			session := sessionFlag(cmd)
			pipeline := buildPipeline(cmd, v)
			res, err := pipeline.RedactWithDetail(cmd.Context(), session, string(raw))
			if err != nil {
				return vaultUnavailableError(err)
			}

			entities := make([]any, len(res.Entities))
			for i, m := range res.Entities {
				entities[i] = map[string]any{
					"type":   m.Type,
					"text":   m.Text,
					"score":  m.Score,
					"source": m.Source,
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(redactTextOutput{
				Text:       res.Text,
				Entities:   entities,
				TokenCount: len(res.Entities),
			})
		},
	}
}
