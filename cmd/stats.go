package cmd

import (
	"encoding/json"
	"os"

	"skilltrack_backend/internal/app"
	"skilltrack_backend/internal/service"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print error statistics as JSON",
	Long:  "Print cross-user error statistics, or the breakdown of one skill with --skill.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := app.InitStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		analytics := service.NewAnalyticsService(store.Repo, nil, 0)

		var out any
		if skillID, _ := cmd.Flags().GetString("skill"); skillID != "" {
			out, err = analytics.GetSkillErrorStats(ctx, skillID)
		} else {
			out, err = analytics.GetGlobalErrorStats(ctx)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	statsCmd.Flags().String("skill", "", "Limit the output to one skill")
}
