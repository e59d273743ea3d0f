package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opencolorado/datamap/internal/heatmap"
)

var (
	runForce   bool
	runWorkers int
	runLimit   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full catalog-to-heat-map pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		workers := runWorkers
		if workers == 0 {
			workers = cfg.Pipeline.Workers
		}

		run, err := e.Engine.Run(ctx, heatmap.RunOpts{
			Workers: workers,
			Limit:   runLimit,
			Force:   runForce || cfg.Pipeline.ForceRasterize,
		})
		if err != nil {
			return err
		}

		zap.L().Info("heat map written",
			zap.String("run_id", run.ID),
			zap.String("output", run.OutputPath),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "re-rasterize datasets even when a current raster exists")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent dataset workers (default from config)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "process at most N datasets (0 = all)")
	rootCmd.AddCommand(runCmd)
}
