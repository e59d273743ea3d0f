package heatmap

import (
	"archive/zip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/opencolorado/datamap/internal/catalog"
	"github.com/opencolorado/datamap/internal/config"
	"github.com/opencolorado/datamap/internal/fetcher"
	"github.com/opencolorado/datamap/internal/raster"
	"github.com/opencolorado/datamap/internal/store"
	"github.com/opencolorado/datamap/internal/vector"
)

// buildShapefileZip writes a one-polygon Web Mercator shapefile and zips it.
func buildShapefileZip(t *testing.T) []byte {
	t.Helper()

	dir := t.TempDir()
	shpPath := filepath.Join(dir, "parks.shp")

	// 40x40 meter square, well inside the test grid.
	square := geom.NewMultiPolygonFlat(geom.XY,
		[]float64{20, 20, 60, 20, 60, 60, 20, 60, 20, 20},
		[][]int{{10}},
	)
	fs := &vector.FeatureSet{
		Type:  vector.Polygon,
		SRS:   vector.SRSWebMercator,
		Geoms: []geom.T{square},
	}
	require.NoError(t, vector.WriteShapefile(fs, shpPath))

	var buf []byte
	{
		tmp := filepath.Join(dir, "parks.zip")
		zf, err := os.Create(tmp)
		require.NoError(t, err)
		zw := zip.NewWriter(zf)
		for _, ext := range []string{".shp", ".shx", ".prj"} {
			data, err := os.ReadFile(filepath.Join(dir, "parks"+ext))
			require.NoError(t, err)
			w, err := zw.Create("parks" + ext)
			require.NoError(t, err)
			_, err = w.Write(data)
			require.NoError(t, err)
		}
		require.NoError(t, zw.Close())
		require.NoError(t, zf.Close())
		buf, err = os.ReadFile(tmp)
		require.NoError(t, err)
	}
	return buf
}

func newTestEngine(t *testing.T) (*Engine, *config.Config) {
	t.Helper()

	zipData := buildShapefileZip(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/package", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]string{"parks", "budget-report"})
	})
	var srvURL string
	mux.HandleFunc("GET /rest/package/parks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(catalog.Package{
			ID:   "parks",
			Name: "parks",
			Resources: []catalog.Resource{
				{URL: srvURL + "/data/parks.zip", Format: "SHP"},
			},
		})
	})
	mux.HandleFunc("GET /rest/package/budget-report", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(catalog.Package{
			ID:   "budget-report",
			Name: "budget-report",
			Resources: []catalog.Resource{
				{URL: srvURL + "/data/budget.csv", Format: "CSV"},
			},
		})
	})
	mux.HandleFunc("GET /data/parks.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipData)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	workDir := t.TempDir()
	cfg := &config.Config{
		Grid: config.GridConfig{
			MinX: 0, MinY: 0, MaxX: 100, MaxY: 100,
			Resolution: 10,
			TargetEPSG: 3857,
		},
		Burn: config.BurnConfig{
			MaxAreaRatio: 0.2,
			DecayRate:    10,
			PointValue:   255,
			LineValue:    255,
		},
		Pipeline: config.PipelineConfig{
			DatasetsDir: filepath.Join(workDir, "datasets"),
			OutputPath:  filepath.Join(workDir, "out", "map.png"),
		},
	}

	s, err := store.NewSQLite(filepath.Join(workDir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	eng, err := NewEngine(
		catalog.New(srv.URL, ""),
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}),
		s,
		cfg,
	)
	require.NoError(t, err)
	return eng, cfg
}

func TestEngineRun(t *testing.T) {
	eng, cfg := newTestEngine(t)
	ctx := context.Background()

	run, err := eng.Run(ctx, RunOpts{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusComplete, run.Status)
	assert.Equal(t, 1, run.DatasetsTotal) // budget-report has no shapefile
	assert.Equal(t, 1, run.DatasetsOK)
	assert.Equal(t, 0, run.DatasetsFailed)
	assert.Equal(t, cfg.Pipeline.OutputPath, run.OutputPath)

	img, err := raster.ReadPNG(cfg.Pipeline.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())

	// The 40x40 square covers pixel (3,5); one raster rescales its own
	// burn value to full intensity.
	assert.Equal(t, uint8(255), img.GrayAt(3, 5).Y)
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)

	// Per-dataset artifacts land under the datasets dir.
	assert.FileExists(t, filepath.Join(cfg.Pipeline.DatasetsDir, "parks", "map.png"))
	assert.FileExists(t, filepath.Join(cfg.Pipeline.DatasetsDir, "parks", "projected", "parks.shp"))
}

func TestEngineSkipsCurrentDatasets(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Run(ctx, RunOpts{})
	require.NoError(t, err)

	run, err := eng.Run(ctx, RunOpts{})
	require.NoError(t, err)
	assert.Equal(t, 1, run.DatasetsSkipped)
	assert.Equal(t, 0, run.DatasetsOK)

	// Force re-rasterizes regardless.
	run, err = eng.Run(ctx, RunOpts{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, run.DatasetsOK)
}

func TestEngineDatasets(t *testing.T) {
	eng, _ := newTestEngine(t)

	pkgs, err := eng.Datasets(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "parks", pkgs[0].Name)
}

func TestCompositeExisting(t *testing.T) {
	eng, cfg := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Run(ctx, RunOpts{})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "again.png")
	paths, err := eng.CompositeExisting(out)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
	assert.FileExists(t, out)

	want, err := raster.ReadPNG(cfg.Pipeline.OutputPath)
	require.NoError(t, err)
	got, err := raster.ReadPNG(out)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, got.Pix)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "parks-and-rec", sanitizeName("Parks and Rec"))
	assert.Equal(t, "trails_2009", sanitizeName("trails_2009"))
	assert.Equal(t, "", sanitizeName("///"))
}
