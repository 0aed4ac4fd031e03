package cmd

import (
	"fmt"

	"skilltrack_backend/internal/app"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the progress document against its schema without modifying it",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := app.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Repo.Check(cmd.Context()); err != nil {
			return fmt.Errorf("%s: %w", store.Backend.Describe(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", store.Backend.Describe())
		return nil
	},
}
