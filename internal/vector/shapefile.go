package vector

import (
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// OpenShapefile reads a shapefile into a FeatureSet. The spatial reference
// is taken from the .prj sidecar next to the .shp, if present.
//
// Any record whose geometry cannot be decoded aborts the whole read: a
// partially loaded dataset must never reach the rasterizer. An empty
// shapefile yields an empty FeatureSet without error.
func OpenShapefile(shpPath string) (*FeatureSet, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	geomType, err := mapShapeType(reader.GeometryType)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: shapefile %s", shpPath)
	}

	srs := detectSRS(shpPath)

	fs := &FeatureSet{Type: geomType, SRS: srs}
	n := 0
	for reader.Next() {
		n++
		_, shape := reader.Shape()
		g, convErr := shapeToGeom(shape)
		if convErr != nil {
			return nil, eris.Wrapf(convErr, "vector: record %d of %s", n, shpPath)
		}
		fs.Geoms = append(fs.Geoms, g)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "vector: read %s", shpPath)
	}

	zap.L().Debug("vector: shapefile loaded",
		zap.String("path", filepath.Base(shpPath)),
		zap.String("type", geomType.String()),
		zap.String("srs", srs.String()),
		zap.Int("features", fs.Len()),
	)

	return fs, nil
}

// WriteShapefile writes a FeatureSet to a new shapefile, geometry only.
// A .prj sidecar describing the feature set's SRS is written alongside.
func WriteShapefile(fs *FeatureSet, shpPath string) error {
	w, err := shp.Create(shpPath, shapeTypeFor(fs.Type))
	if err != nil {
		return eris.Wrapf(err, "vector: create shapefile %s", shpPath)
	}

	for i, g := range fs.Geoms {
		shape, convErr := geomToShape(g)
		if convErr != nil {
			w.Close()
			return eris.Wrapf(convErr, "vector: feature %d", i)
		}
		w.Write(shape)
	}
	w.Close()

	if fs.SRS != SRSUnknown {
		if err := WritePRJ(prjSidecar(shpPath), fs.SRS); err != nil {
			return err
		}
	}

	return nil
}

func mapShapeType(t shp.ShapeType) (GeometryType, error) {
	switch t {
	case shp.POINT, shp.MULTIPOINT:
		return Point, nil
	case shp.POLYLINE:
		return Line, nil
	case shp.POLYGON:
		return Polygon, nil
	default:
		return 0, eris.Errorf("unsupported shape type %d", t)
	}
}

func shapeTypeFor(t GeometryType) shp.ShapeType {
	switch t {
	case Point:
		return shp.POINT
	case Line:
		return shp.POLYLINE
	default:
		return shp.POLYGON
	}
}

// shapeToGeom converts a go-shp shape into a go-geom geometry. Nil or
// unsupported shapes are errors: the reprojector needs every record.
func shapeToGeom(shape shp.Shape) (geom.T, error) {
	if shape == nil {
		return nil, eris.New("nil geometry")
	}

	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil

	case *shp.MultiPoint:
		flat := make([]float64, 0, len(s.Points)*2)
		for _, p := range s.Points {
			flat = append(flat, p.X, p.Y)
		}
		return geom.NewMultiPointFlat(geom.XY, flat), nil

	case *shp.PolyLine:
		mls := geom.NewMultiLineString(geom.XY)
		for i := int32(0); i < s.NumParts; i++ {
			start, end := partRange(s.Parts, i, s.NumParts, int32(len(s.Points)))
			ls := geom.NewLineStringFlat(geom.XY, flatPart(s.Points, start, end))
			if err := mls.Push(ls); err != nil {
				return nil, eris.Wrapf(err, "polyline part %d", i)
			}
		}
		return mls, nil

	case *shp.Polygon:
		// Shapefile polygons are flat ring lists: outer rings wind
		// clockwise, holes counter-clockwise. The rasterizer's even-odd
		// fill does not care which is which, so all rings are kept as
		// rings of a single polygon per part grouping.
		mp := geom.NewMultiPolygon(geom.XY)
		for i := int32(0); i < s.NumParts; i++ {
			start, end := partRange(s.Parts, i, s.NumParts, int32(len(s.Points)))
			ring := geom.NewLinearRingFlat(geom.XY, flatPart(s.Points, start, end))
			poly := geom.NewPolygon(geom.XY)
			if err := poly.Push(ring); err != nil {
				return nil, eris.Wrapf(err, "polygon ring %d", i)
			}
			if err := mp.Push(poly); err != nil {
				return nil, eris.Wrapf(err, "polygon part %d", i)
			}
		}
		return mp, nil

	default:
		return nil, eris.Errorf("unsupported shape %T", shape)
	}
}

// geomToShape converts a go-geom geometry back into a go-shp shape.
func geomToShape(g geom.T) (shp.Shape, error) {
	switch t := g.(type) {
	case *geom.Point:
		c := t.Coords()
		return &shp.Point{X: c[0], Y: c[1]}, nil

	case *geom.MultiPoint:
		pts := make([]shp.Point, 0, t.NumPoints())
		for i := 0; i < t.NumPoints(); i++ {
			c := t.Point(i).Coords()
			pts = append(pts, shp.Point{X: c[0], Y: c[1]})
		}
		return &shp.MultiPoint{
			Box:       shp.BBoxFromPoints(pts),
			NumPoints: int32(len(pts)),
			Points:    pts,
		}, nil

	case *geom.MultiLineString:
		parts := make([][]shp.Point, 0, t.NumLineStrings())
		for i := 0; i < t.NumLineStrings(); i++ {
			parts = append(parts, coordsToPoints(t.LineString(i).Coords()))
		}
		return shp.NewPolyLine(parts), nil

	case *geom.MultiPolygon:
		var parts [][]shp.Point
		for i := 0; i < t.NumPolygons(); i++ {
			poly := t.Polygon(i)
			for r := 0; r < poly.NumLinearRings(); r++ {
				parts = append(parts, coordsToPoints(poly.LinearRing(r).Coords()))
			}
		}
		pl := shp.NewPolyLine(parts)
		return (*shp.Polygon)(pl), nil

	default:
		return nil, eris.Errorf("unsupported geometry %T", g)
	}
}

func coordsToPoints(coords []geom.Coord) []shp.Point {
	pts := make([]shp.Point, 0, len(coords))
	for _, c := range coords {
		pts = append(pts, shp.Point{X: c[0], Y: c[1]})
	}
	return pts
}

func flatPart(points []shp.Point, start, end int32) []float64 {
	flat := make([]float64, 0, (end-start)*2)
	for j := start; j < end; j++ {
		flat = append(flat, points[j].X, points[j].Y)
	}
	return flat
}

func partRange(parts []int32, i, numParts, numPoints int32) (int32, int32) {
	start := parts[i]
	end := numPoints
	if i+1 < numParts {
		end = parts[i+1]
	}
	return start, end
}

func prjSidecar(shpPath string) string {
	return strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
}
