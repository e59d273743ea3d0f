package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var compositeOutput string

var compositeCmd = &cobra.Command{
	Use:   "composite",
	Short: "Rebuild the composite from rasters already on disk",
	Long:  "Skips the catalog and download stages entirely and re-renders the final heat map from the per-dataset rasters under the datasets directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		paths, err := e.Engine.CompositeExisting(compositeOutput)
		if err != nil {
			return err
		}

		out := compositeOutput
		if out == "" {
			out = cfg.Pipeline.OutputPath
		}
		zap.L().Info("composite written",
			zap.Int("rasters", len(paths)),
			zap.String("output", out),
		)
		return nil
	},
}

func init() {
	compositeCmd.Flags().StringVar(&compositeOutput, "output", "", "output path (default from config)")
	rootCmd.AddCommand(compositeCmd)
}
