package cmd

import (
	"fmt"

	"skilltrack_backend/internal/app"

	"github.com/spf13/cobra"
)

var resetUserCmd = &cobra.Command{
	Use:   "reset-user <user_id>",
	Short: "Clear a user's skill progress and completed attempts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := app.InitStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Repo.ClearUserProgress(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Progress cleared for user %s\n", args[0])
		return nil
	},
}
