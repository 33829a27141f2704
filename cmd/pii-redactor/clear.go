package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every token mapping for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			session := sessionFlag(cmd)
			if err := v.DeleteSession(cmd.Context(), session); err != nil {
				return vaultUnavailableError(err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Cleared session %s\n", session)
			return nil
		},
	}
}
