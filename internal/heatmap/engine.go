// Package heatmap orchestrates the catalog-to-composite pipeline: it walks
// the CKAN catalog, rasterizes every shapefile dataset onto a shared grid,
// and composites the per-dataset rasters into a single density map.
package heatmap

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opencolorado/datamap/internal/catalog"
	"github.com/opencolorado/datamap/internal/composite"
	"github.com/opencolorado/datamap/internal/config"
	"github.com/opencolorado/datamap/internal/fetcher"
	"github.com/opencolorado/datamap/internal/raster"
	"github.com/opencolorado/datamap/internal/store"
	"github.com/opencolorado/datamap/internal/vector"
)

// Engine drives a full heat-map run.
type Engine struct {
	catalog catalog.Client
	fetcher fetcher.Fetcher
	store   store.Store

	grid    raster.Grid
	policy  raster.BurnPolicy
	target  vector.SRS
	baseDir string
	output  string
}

// RunOpts configures a single Run.
type RunOpts struct {
	Workers int  // concurrent dataset workers
	Limit   int  // process at most N datasets (0 = all)
	Force   bool // re-rasterize even when a current raster exists
}

// NewEngine wires an engine from loaded config.
func NewEngine(c catalog.Client, f fetcher.Fetcher, s store.Store, cfg *config.Config) (*Engine, error) {
	grid := raster.FromConfig(cfg.Grid)
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		catalog: c,
		fetcher: f,
		store:   s,
		grid:    grid,
		policy:  raster.NewBurnPolicy(grid, cfg.Burn),
		target:  vector.SRS(cfg.Grid.TargetEPSG),
		baseDir: cfg.Pipeline.DatasetsDir,
		output:  cfg.Pipeline.OutputPath,
	}, nil
}

// Run executes a complete pipeline pass. Individual dataset failures are
// recorded and do not abort the run; only catalog or store errors do.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*store.Run, error) {
	log := zap.L().With(zap.String("component", "heatmap.engine"))

	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	run, err := e.store.StartRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "engine: start run")
	}

	summary, runErr := e.run(ctx, log, run.ID, opts)
	if runErr != nil {
		if failErr := e.store.FailRun(ctx, run.ID, runErr.Error()); failErr != nil {
			log.Error("failed to record run failure", zap.Error(failErr))
		}
		return nil, runErr
	}

	if err := e.store.CompleteRun(ctx, run.ID, *summary); err != nil {
		return nil, eris.Wrap(err, "engine: complete run")
	}
	return e.store.GetRun(ctx, run.ID)
}

func (e *Engine) run(ctx context.Context, log *zap.Logger, runID string, opts RunOpts) (*store.RunSummary, error) {
	datasets, err := e.listDatasets(ctx, log, opts.Limit)
	if err != nil {
		return nil, err
	}

	if len(datasets) == 0 {
		log.Info("no shapefile datasets in catalog")
		return &store.RunSummary{}, nil
	}

	log.Info("selected datasets", zap.Int("count", len(datasets)))

	var ok, skipped, failed atomic.Int64
	var mu sync.Mutex
	var rasterPaths []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, ds := range datasets {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			dLog := log.With(zap.String("dataset", ds.pkg.Name))

			start := time.Now()
			result := e.processDataset(gctx, dLog, ds, opts.Force)
			elapsed := time.Since(start)

			switch result.Status {
			case store.DatasetOK:
				dLog.Info("dataset rasterized", zap.Duration("elapsed", elapsed))
				ok.Add(1)
			case store.DatasetSkipped:
				dLog.Debug("dataset current, skipping")
				skipped.Add(1)
			case store.DatasetFailed:
				dLog.Error("dataset failed", zap.String("error", result.Error), zap.Duration("elapsed", elapsed))
				failed.Add(1)
			}

			if result.RasterPath != "" {
				mu.Lock()
				rasterPaths = append(rasterPaths, result.RasterPath)
				mu.Unlock()
			}

			if err := e.store.RecordDataset(gctx, runID, result); err != nil {
				dLog.Error("failed to record dataset result", zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "engine: dataset workers")
	}

	summary := &store.RunSummary{
		DatasetsTotal:   len(datasets),
		DatasetsOK:      int(ok.Load()),
		DatasetsSkipped: int(skipped.Load()),
		DatasetsFailed:  int(failed.Load()),
	}

	if len(rasterPaths) == 0 {
		return nil, eris.New("engine: no rasters produced, nothing to composite")
	}

	log.Info("compositing rasters", zap.Int("count", len(rasterPaths)))
	img, err := composite.Files(rasterPaths)
	if err != nil {
		return nil, eris.Wrap(err, "engine: composite")
	}
	if err := os.MkdirAll(filepath.Dir(e.output), 0o755); err != nil {
		return nil, eris.Wrap(err, "engine: create output dir")
	}
	if err := raster.WritePNG(img, e.output); err != nil {
		return nil, err
	}
	summary.OutputPath = e.output

	log.Info("run complete",
		zap.Int("ok", summary.DatasetsOK),
		zap.Int("skipped", summary.DatasetsSkipped),
		zap.Int("failed", summary.DatasetsFailed),
		zap.String("output", e.output),
	)
	return summary, nil
}

// CompositeExisting re-renders the composite from rasters already on disk
// without touching the catalog. It returns the paths that were composited.
func (e *Engine) CompositeExisting(outputPath string) ([]string, error) {
	if outputPath == "" {
		outputPath = e.output
	}

	entries, err := os.ReadDir(e.baseDir)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: read datasets dir %s", e.baseDir)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p := e.rasterPath(entry.Name())
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, eris.Errorf("engine: no rasters found under %s", e.baseDir)
	}

	img, err := composite.Files(paths)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, eris.Wrap(err, "engine: create output dir")
	}
	if err := raster.WritePNG(img, outputPath); err != nil {
		return nil, err
	}
	return paths, nil
}

// Datasets lists the catalog packages that carry a shapefile resource.
func (e *Engine) Datasets(ctx context.Context, limit int) ([]*catalog.Package, error) {
	log := zap.L().With(zap.String("component", "heatmap.engine"))

	selected, err := e.listDatasets(ctx, log, limit)
	if err != nil {
		return nil, err
	}
	pkgs := make([]*catalog.Package, 0, len(selected))
	for _, ds := range selected {
		pkgs = append(pkgs, ds.pkg)
	}
	return pkgs, nil
}

// dataset pairs a catalog package with its shapefile resource.
type dataset struct {
	pkg *catalog.Package
	res catalog.Resource
}

// listDatasets walks the catalog and keeps packages exposing a shapefile
// resource. Packages that fail to load are logged and dropped rather than
// aborting the run.
func (e *Engine) listDatasets(ctx context.Context, log *zap.Logger, limit int) ([]dataset, error) {
	ids, err := e.catalog.ListPackageIDs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "engine: list catalog packages")
	}

	var datasets []dataset
	for _, id := range ids {
		if limit > 0 && len(datasets) >= limit {
			break
		}

		pkg, err := e.catalog.GetPackage(ctx, id)
		if err != nil {
			log.Warn("failed to load package", zap.String("id", id), zap.Error(err))
			continue
		}

		res, found := pkg.ShapefileResource()
		if !found {
			continue
		}
		datasets = append(datasets, dataset{pkg: pkg, res: res})
	}
	return datasets, nil
}
