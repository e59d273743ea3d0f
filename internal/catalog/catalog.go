// Package catalog provides a client for CKAN-style open-data catalog
// REST APIs (v2 "rest" endpoints).
package catalog

import (
	"strings"
)

// Package is a catalog dataset entry.
type Package struct {
	ID        string            `json:"id,omitempty"`
	Name      string            `json:"name"`
	Title     string            `json:"title,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	LicenseID string            `json:"license_id,omitempty"`
	Groups    []string          `json:"groups,omitempty"`
	Resources []Resource        `json:"resources,omitempty"`
	Extras    map[string]string `json:"extras,omitempty"`
}

// Resource describes one downloadable artifact of a package.
type Resource struct {
	URL           string `json:"url"`
	Format        string `json:"format,omitempty"`
	Mimetype      string `json:"mimetype,omitempty"`
	MimetypeInner string `json:"mimetype_inner,omitempty"`
	Name          string `json:"name,omitempty"`
	Description   string `json:"description,omitempty"`
}

// IsShapefile reports whether the resource looks like a zipped shapefile.
// Catalogs are inconsistent about where they record the format, so every
// descriptive field is checked.
func (r Resource) IsShapefile() bool {
	for _, field := range []string{r.Mimetype, r.MimetypeInner, r.Format, r.Name, r.Description} {
		f := strings.ToLower(field)
		if strings.Contains(f, "shp") || strings.Contains(f, "shapefile") {
			return true
		}
	}
	return false
}

// ShapefileResource returns the package's first shapefile resource, if any.
func (p Package) ShapefileResource() (Resource, bool) {
	for _, r := range p.Resources {
		if r.IsShapefile() {
			return r, true
		}
	}
	return Resource{}, false
}
