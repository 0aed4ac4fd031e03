package cmd

import (
	"fmt"
	"os"

	"skilltrack_backend/internal/app"
	"skilltrack_backend/internal/service"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write global error statistics to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		output, _ := cmd.Flags().GetString("output")

		store, err := app.InitStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()

		exporter := service.NewExportService(service.NewAnalyticsService(store.Repo, nil, 0))
		if err := exporter.WriteGlobalErrorsXLSX(ctx, f); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "global-errors.xlsx", "Output file")
}
