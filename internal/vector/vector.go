// Package vector reads and writes ESRI shapefiles as go-geom feature sets.
package vector

import (
	"github.com/twpayne/go-geom"
)

// GeometryType classifies a feature set by its shapefile shape type.
type GeometryType int

const (
	// Point covers point shapes.
	Point GeometryType = iota + 1
	// Line covers polyline shapes.
	Line
	// Polygon covers polygon shapes.
	Polygon
)

// String returns the human-readable geometry type name.
func (t GeometryType) String() string {
	switch t {
	case Point:
		return "point"
	case Line:
		return "line"
	case Polygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// SRS identifies the spatial reference of a feature set's coordinates.
type SRS int

const (
	// SRSUnknown means no .prj sidecar was present.
	SRSUnknown SRS = 0
	// SRSGeographic is WGS84 longitude/latitude (EPSG:4326).
	SRSGeographic SRS = 4326
	// SRSWebMercator is spherical Web Mercator meters (EPSG:3857).
	SRSWebMercator SRS = 3857
)

// String returns the EPSG-style identifier.
func (s SRS) String() string {
	switch s {
	case SRSGeographic:
		return "EPSG:4326"
	case SRSWebMercator:
		return "EPSG:3857"
	default:
		return "unknown"
	}
}

// FeatureSet is an ordered sequence of geometries of a single type with an
// associated spatial reference. Attributes are not carried: the heat map
// only weighs geometry.
type FeatureSet struct {
	Type  GeometryType
	SRS   SRS
	Geoms []geom.T
}

// Len returns the feature count.
func (fs *FeatureSet) Len() int {
	return len(fs.Geoms)
}
