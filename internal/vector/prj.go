package vector

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Well-known-text definitions written as .prj sidecars. The Web Mercator
// text matches what ArcGIS emits for the auxiliary-sphere variant so the
// projected shapefiles open correctly in desktop tools.
const (
	WebMercatorWKT = `PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Mercator_Auxiliary_Sphere"],PARAMETER["False_Easting",0.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",0.0],PARAMETER["Standard_Parallel_1",0.0],PARAMETER["Auxiliary_Sphere_Type",0.0],UNIT["Meter",1.0]]`

	GeographicWKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
)

// WritePRJ writes the WKT definition for the given SRS to path.
func WritePRJ(path string, srs SRS) error {
	var wkt string
	switch srs {
	case SRSWebMercator:
		wkt = WebMercatorWKT
	case SRSGeographic:
		wkt = GeographicWKT
	default:
		return eris.Errorf("vector: no WKT definition for %s", srs)
	}
	if err := os.WriteFile(path, []byte(wkt), 0o644); err != nil {
		return eris.Wrapf(err, "vector: write prj %s", path)
	}
	return nil
}

// ParseSRS classifies a WKT spatial reference definition. Full WKT parsing
// is out of scope; open-data portals in practice publish either geographic
// WGS84 or a Web Mercator variant, and anything else is unknown.
func ParseSRS(wkt string) SRS {
	w := strings.ToLower(wkt)
	switch {
	case strings.Contains(w, "mercator") || strings.Contains(w, "3857") || strings.Contains(w, "900913"):
		return SRSWebMercator
	case strings.HasPrefix(strings.TrimSpace(w), "geogcs") && strings.Contains(w, "wgs"):
		return SRSGeographic
	default:
		return SRSUnknown
	}
}

// detectSRS reads the .prj sidecar next to a .shp file, if any.
func detectSRS(shpPath string) SRS {
	prjPath := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
	data, err := os.ReadFile(prjPath)
	if err != nil {
		return SRSUnknown
	}
	return ParseSRS(string(data))
}
