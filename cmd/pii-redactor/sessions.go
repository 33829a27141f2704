package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List every session with at least one token allocated",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			sessions, err := v.ListSessions(cmd.Context())
			if err != nil {
				return vaultUnavailableError(err)
			}
			if sessions == nil {
				sessions = []string{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(sessions)
		},
	}
}
