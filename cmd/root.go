package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"skilltrack_backend/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "skilltrack",
	Short:         "Wheelchair skill training progress and analytics backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		dir, _ := cmd.Flags().GetString("config")
		loaded, err := config.LoadConfig(dir)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "configs", "Directory containing config.yaml")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before the config")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(resetUserCmd)
	rootCmd.AddCommand(validateCmd)
}
