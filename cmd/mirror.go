package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opencolorado/datamap/internal/catalog"
	"github.com/opencolorado/datamap/internal/mirror"
)

var (
	mirrorDryRun bool
	mirrorLimit  int
	mirrorSource string
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirror a regional catalog into the primary catalog",
	Long:  "Copies every package from the source catalog into the primary one under the configured name and title prefixes, then prunes mirrored packages whose source entry has vanished.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sourceURL := mirrorSource
		if sourceURL == "" {
			sourceURL = cfg.Mirror.SourceURL
		}
		if sourceURL == "" {
			return eris.New("mirror: no source catalog configured")
		}

		src := catalog.New(sourceURL, "")
		dst := catalog.New(cfg.Catalog.BaseURL, cfg.Catalog.APIKey)

		result, err := mirror.New(src, dst, cfg.Mirror).Sync(ctx, mirror.SyncOpts{
			DryRun: mirrorDryRun,
			Limit:  mirrorLimit,
		})
		if err != nil {
			return err
		}

		zap.L().Info("mirror sync finished",
			zap.Int("created", result.Created),
			zap.Int("updated", result.Updated),
			zap.Int("deleted", result.Deleted),
			zap.Int("failed", result.Failed),
		)
		return nil
	},
}

func init() {
	mirrorCmd.Flags().BoolVar(&mirrorDryRun, "dry-run", false, "report what would change without writing")
	mirrorCmd.Flags().IntVar(&mirrorLimit, "limit", 0, "mirror at most N packages (0 = all)")
	mirrorCmd.Flags().StringVar(&mirrorSource, "source", "", "source catalog API URL (default from config)")
	rootCmd.AddCommand(mirrorCmd)
}
