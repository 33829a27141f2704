package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newRehydrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rehydrate",
		Short: "Rehydrate tokens in text read from stdin back to their original values",
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
			text, err := v.Rehydrate(cmd.Context(), session, string(raw))
			if err != nil {
				return vaultUnavailableError(err)
			}

			_, err = cmd.OutOrStdout().Write([]byte(text))
			return err
		},
	}
}
