package heatmap

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opencolorado/datamap/internal/fetcher"
	"github.com/opencolorado/datamap/internal/raster"
	"github.com/opencolorado/datamap/internal/reproject"
	"github.com/opencolorado/datamap/internal/store"
	"github.com/opencolorado/datamap/internal/vector"
)

// Per-dataset layout under the datasets dir:
//
//	<name>/download/archive.zip   raw download
//	<name>/source/                extracted archive
//	<name>/projected/<name>.shp   reprojected geometry
//	<name>/map.png                rasterized layer
func (e *Engine) datasetDir(name string) string {
	return filepath.Join(e.baseDir, name)
}

func (e *Engine) rasterPath(name string) string {
	return filepath.Join(e.datasetDir(name), "map.png")
}

// processDataset runs the download-extract-reproject-rasterize chain for one
// dataset. All failures are folded into the returned result; the dataset
// never takes the run down with it.
func (e *Engine) processDataset(ctx context.Context, log *zap.Logger, ds dataset, force bool) store.DatasetResult {
	name := sanitizeName(ds.pkg.Name)
	if name == "" {
		return failure(ds.pkg.Name, eris.New("dataset: empty package name"))
	}

	rasterPath := e.rasterPath(name)

	if !force {
		last, err := e.store.LastDatasetSuccess(ctx, name)
		if err != nil {
			return failure(name, eris.Wrap(err, "dataset: check last success"))
		}
		if last != nil {
			if _, statErr := os.Stat(rasterPath); statErr == nil {
				return store.DatasetResult{
					Name:       name,
					Status:     store.DatasetSkipped,
					RasterPath: rasterPath,
				}
			}
		}
	}

	img, err := e.rasterize(ctx, log, name, ds.res.URL)
	if err != nil {
		return failure(name, err)
	}

	if err := raster.WritePNG(img, rasterPath); err != nil {
		return failure(name, err)
	}

	// The raw archive and extracted source are not needed once the
	// raster exists. The projected shapefile stays.
	for _, d := range []string{"download", "source"} {
		if err := os.RemoveAll(filepath.Join(e.datasetDir(name), d)); err != nil {
			log.Warn("failed to clean dataset temp dir", zap.String("dir", d), zap.Error(err))
		}
	}

	return store.DatasetResult{
		Name:       name,
		Status:     store.DatasetOK,
		RasterPath: rasterPath,
	}
}

func (e *Engine) rasterize(ctx context.Context, log *zap.Logger, name, url string) (*image.Gray, error) {
	dir := e.datasetDir(name)
	downloadDir := filepath.Join(dir, "download")
	sourceDir := filepath.Join(dir, "source")
	projectedDir := filepath.Join(dir, "projected")

	for _, d := range []string{downloadDir, sourceDir, projectedDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, eris.Wrapf(err, "dataset: create %s", d)
		}
	}

	archivePath := filepath.Join(downloadDir, "archive.zip")
	size, err := e.fetcher.DownloadToFile(ctx, url, archivePath)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: download %s", url)
	}
	log.Debug("downloaded archive", zap.Int64("bytes", size))

	if _, err := fetcher.ExtractZIP(archivePath, sourceDir); err != nil {
		return nil, eris.Wrap(err, "dataset: extract archive")
	}

	shpPath, err := fetcher.FindByExt(sourceDir, ".shp")
	if err != nil {
		return nil, eris.Wrap(err, "dataset: locate shapefile")
	}

	fs, err := vector.OpenShapefile(shpPath)
	if err != nil {
		return nil, err
	}
	log.Debug("opened shapefile",
		zap.Int("features", fs.Len()),
		zap.String("type", fs.Type.String()),
		zap.String("srs", fs.SRS.String()),
	)

	transform, err := reproject.For(fs.SRS, e.target)
	if err != nil {
		return nil, err
	}
	projected, err := reproject.Reproject(fs, transform)
	if err != nil {
		return nil, err
	}

	projectedPath := filepath.Join(projectedDir, name+".shp")
	if err := vector.WriteShapefile(projected, projectedPath); err != nil {
		return nil, err
	}

	return raster.Rasterize(projected, e.grid, e.policy)
}

func failure(name string, err error) store.DatasetResult {
	return store.DatasetResult{
		Name:   name,
		Status: store.DatasetFailed,
		Error:  err.Error(),
	}
}

// sanitizeName restricts dataset names to a filesystem-safe character set.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-.")
}
