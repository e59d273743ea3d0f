// Package reproject transforms feature-set coordinates between spatial
// references. The pipeline only ever targets spherical Web Mercator, so
// the transform set is small: geographic WGS84 forward projection and an
// identity passthrough for sources already in the target reference.
package reproject

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/opencolorado/datamap/internal/vector"
)

// ErrNoSourceSRS is returned when a dataset carries no usable spatial
// reference. The caller treats this as fatal for the dataset only.
var ErrNoSourceSRS = eris.New("reproject: source has no known spatial reference")

// webMercatorRadius is the WGS84 sphere radius used by EPSG:3857.
const webMercatorRadius = 6378137.0

// maxMercatorLat clamps latitudes so the projection stays finite.
const maxMercatorLat = 89.9

// Transform maps a coordinate into the target spatial reference in place.
type Transform interface {
	// Apply transforms a single XY coordinate.
	Apply(c geom.Coord) (geom.Coord, error)
	// Target returns the spatial reference Apply produces.
	Target() vector.SRS
}

// Identity passes coordinates through unchanged.
type Identity struct {
	SRS vector.SRS
}

// Apply returns the coordinate unchanged.
func (i Identity) Apply(c geom.Coord) (geom.Coord, error) { return c, nil }

// Target returns the unchanged spatial reference.
func (i Identity) Target() vector.SRS { return i.SRS }

// GeographicToWebMercator is the spherical forward Mercator projection
// (EPSG:4326 → EPSG:3857).
type GeographicToWebMercator struct{}

// Apply projects lon/lat degrees into Web Mercator meters.
func (GeographicToWebMercator) Apply(c geom.Coord) (geom.Coord, error) {
	lon, lat := c[0], c[1]
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return nil, eris.Errorf("reproject: non-finite coordinate (%v, %v)", lon, lat)
	}
	if lat > maxMercatorLat {
		lat = maxMercatorLat
	}
	if lat < -maxMercatorLat {
		lat = -maxMercatorLat
	}

	x := lon * math.Pi / 180 * webMercatorRadius
	latRad := lat * math.Pi / 180
	y := math.Log(math.Tan(math.Pi/4+latRad/2)) * webMercatorRadius
	return geom.Coord{x, y}, nil
}

// Target returns Web Mercator.
func (GeographicToWebMercator) Target() vector.SRS { return vector.SRSWebMercator }

// For selects the transform that carries src into target. A source with
// no recognized SRS yields ErrNoSourceSRS.
func For(src, target vector.SRS) (Transform, error) {
	if src == vector.SRSUnknown {
		return nil, ErrNoSourceSRS
	}
	if src == target {
		return Identity{SRS: target}, nil
	}
	if src == vector.SRSGeographic && target == vector.SRSWebMercator {
		return GeographicToWebMercator{}, nil
	}
	return nil, eris.Errorf("reproject: no transform from %s to %s", src, target)
}

// Reproject returns a new feature set with every geometry expressed in the
// transform's target reference. Feature count and geometry type are
// preserved exactly. Any coordinate that cannot be transformed aborts the
// whole reprojection; no partial output is produced.
func Reproject(fs *vector.FeatureSet, t Transform) (*vector.FeatureSet, error) {
	out := &vector.FeatureSet{
		Type:  fs.Type,
		SRS:   t.Target(),
		Geoms: make([]geom.T, 0, fs.Len()),
	}

	for i, g := range fs.Geoms {
		ng, err := transformGeom(g, t)
		if err != nil {
			return nil, eris.Wrapf(err, "reproject: feature %d", i)
		}
		out.Geoms = append(out.Geoms, ng)
	}

	zap.L().Debug("reprojected feature set",
		zap.String("type", fs.Type.String()),
		zap.String("from", fs.SRS.String()),
		zap.String("to", out.SRS.String()),
		zap.Int("features", out.Len()),
	)

	return out, nil
}

// transformGeom rebuilds a geometry with transformed flat coordinates.
// Operating on the flat coordinate slice keeps ring/part structure intact.
func transformGeom(g geom.T, t Transform) (geom.T, error) {
	flat := g.FlatCoords()
	stride := g.Stride()
	newFlat := make([]float64, len(flat))

	for i := 0; i+1 < len(flat); i += stride {
		c, err := t.Apply(geom.Coord{flat[i], flat[i+1]})
		if err != nil {
			return nil, err
		}
		newFlat[i], newFlat[i+1] = c[0], c[1]
		for j := 2; j < stride; j++ {
			newFlat[i+j] = flat[i+j]
		}
	}

	switch typed := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(typed.Layout(), newFlat), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(typed.Layout(), newFlat), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(typed.Layout(), newFlat), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(typed.Layout(), newFlat, typed.Ends()), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(typed.Layout(), newFlat, typed.Ends()), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(typed.Layout(), newFlat, typed.Endss()), nil
	default:
		return nil, eris.Errorf("reproject: unsupported geometry %T", g)
	}
}
