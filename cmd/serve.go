package cmd

import (
	"skilltrack_backend/internal/app"
	"skilltrack_backend/pkg/logger"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	application, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	return application.Run()
}
