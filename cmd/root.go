package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opencolorado/datamap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "datamap",
	Short: "Open-data heat map pipeline",
	Long:  "Walks a CKAN open-data catalog, rasterizes every shapefile dataset onto a shared Web Mercator grid, and composites the layers into a single data-density heat map.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
