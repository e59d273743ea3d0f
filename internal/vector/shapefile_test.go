package vector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func writeTestShapefile(t *testing.T, shapeType shp.ShapeType, shapes []shp.Shape) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.shp")
	w, err := shp.Create(path, shapeType)
	require.NoError(t, err)
	for _, s := range shapes {
		w.Write(s)
	}
	w.Close()
	return path
}

func squareShape(minX, minY, size float64) *shp.Polygon {
	pl := shp.NewPolyLine([][]shp.Point{{
		{X: minX, Y: minY},
		{X: minX, Y: minY + size},
		{X: minX + size, Y: minY + size},
		{X: minX + size, Y: minY},
		{X: minX, Y: minY},
	}})
	return (*shp.Polygon)(pl)
}

func TestOpenShapefile_Points(t *testing.T) {
	path := writeTestShapefile(t, shp.POINT, []shp.Shape{
		&shp.Point{X: -105.0, Y: 39.7},
		&shp.Point{X: -104.9, Y: 39.8},
	})

	fs, err := OpenShapefile(path)
	require.NoError(t, err)
	assert.Equal(t, Point, fs.Type)
	assert.Equal(t, 2, fs.Len())
	assert.Equal(t, SRSUnknown, fs.SRS)

	p, ok := fs.Geoms[0].(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, -105.0, p.Coords()[0], 1e-9)
	assert.InDelta(t, 39.7, p.Coords()[1], 1e-9)
}

func TestOpenShapefile_Polygons(t *testing.T) {
	path := writeTestShapefile(t, shp.POLYGON, []shp.Shape{
		squareShape(0, 0, 10),
		squareShape(20, 20, 5),
	})

	fs, err := OpenShapefile(path)
	require.NoError(t, err)
	assert.Equal(t, Polygon, fs.Type)
	require.Equal(t, 2, fs.Len())

	mp, ok := fs.Geoms[0].(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())
}

func TestOpenShapefile_Empty(t *testing.T) {
	path := writeTestShapefile(t, shp.POLYGON, nil)

	fs, err := OpenShapefile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, fs.Len())
}

func TestOpenShapefile_ReadsPRJSidecar(t *testing.T) {
	path := writeTestShapefile(t, shp.POINT, []shp.Shape{&shp.Point{X: 1, Y: 2}})
	prj := filepath.Join(filepath.Dir(path), "test.prj")
	require.NoError(t, os.WriteFile(prj, []byte(GeographicWKT), 0o644))

	fs, err := OpenShapefile(path)
	require.NoError(t, err)
	assert.Equal(t, SRSGeographic, fs.SRS)
}

func TestOpenShapefile_Missing(t *testing.T) {
	_, err := OpenShapefile(filepath.Join(t.TempDir(), "nope.shp"))
	require.Error(t, err)
}

func TestWriteShapefile_Roundtrip(t *testing.T) {
	fs := &FeatureSet{
		Type: Polygon,
		SRS:  SRSWebMercator,
		Geoms: []geom.T{
			mustMultiPolygon(t, [][]float64{{0, 0, 0, 100, 100, 100, 100, 0, 0, 0}}),
		},
	}

	dir := t.TempDir()
	shpPath := filepath.Join(dir, "projected.shp")
	require.NoError(t, WriteShapefile(fs, shpPath))

	// .prj sidecar written alongside
	prjData, err := os.ReadFile(filepath.Join(dir, "projected.prj"))
	require.NoError(t, err)
	assert.Equal(t, SRSWebMercator, ParseSRS(string(prjData)))

	back, err := OpenShapefile(shpPath)
	require.NoError(t, err)
	assert.Equal(t, Polygon, back.Type)
	assert.Equal(t, fs.Len(), back.Len())
	assert.Equal(t, SRSWebMercator, back.SRS)
}

func TestParseSRS(t *testing.T) {
	assert.Equal(t, SRSWebMercator, ParseSRS(WebMercatorWKT))
	assert.Equal(t, SRSGeographic, ParseSRS(GeographicWKT))
	assert.Equal(t, SRSUnknown, ParseSRS(`PROJCS["NAD_1983_StatePlane_Colorado_Central"]`))
	assert.Equal(t, SRSUnknown, ParseSRS(""))
}

func mustMultiPolygon(t *testing.T, rings [][]float64) *geom.MultiPolygon {
	t.Helper()
	mp := geom.NewMultiPolygon(geom.XY)
	for _, flat := range rings {
		poly := geom.NewPolygon(geom.XY)
		require.NoError(t, poly.Push(geom.NewLinearRingFlat(geom.XY, flat)))
		require.NoError(t, mp.Push(poly))
	}
	return mp
}
