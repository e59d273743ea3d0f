// Package raster burns vector feature sets into fixed-size grayscale
// grids. Every per-dataset raster shares one Grid so the compositor can
// sum them pixel for pixel.
package raster

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/opencolorado/datamap/internal/config"
)

// Grid is a fixed-resolution 2D grid spanning a bounding box. Coordinates
// are in the target spatial reference's linear units; Resolution is units
// per pixel. Row 0 is the top of the image (MaxY), matching raster
// conventions.
type Grid struct {
	MinX, MinY float64
	MaxX, MaxY float64
	Resolution float64
}

// FromConfig builds a Grid from the configured bounding box.
func FromConfig(cfg config.GridConfig) Grid {
	return Grid{
		MinX:       cfg.MinX,
		MinY:       cfg.MinY,
		MaxX:       cfg.MaxX,
		MaxY:       cfg.MaxY,
		Resolution: cfg.Resolution,
	}
}

// Validate checks the grid parameters.
func (g Grid) Validate() error {
	if g.Resolution <= 0 {
		return eris.Errorf("raster: resolution must be positive, got %v", g.Resolution)
	}
	if g.MaxX <= g.MinX || g.MaxY <= g.MinY {
		return eris.Errorf("raster: degenerate bounding box (%v,%v)-(%v,%v)",
			g.MinX, g.MinY, g.MaxX, g.MaxY)
	}
	return nil
}

// Width returns the pixel column count: ceil((MaxX-MinX)/Resolution).
func (g Grid) Width() int {
	return int(math.Ceil((g.MaxX - g.MinX) / g.Resolution))
}

// Height returns the pixel row count: ceil((MaxY-MinY)/Resolution).
func (g Grid) Height() int {
	return int(math.Ceil((g.MaxY - g.MinY) / g.Resolution))
}

// Area returns the bounding-box area in squared linear units.
func (g Grid) Area() float64 {
	return (g.MaxX - g.MinX) * (g.MaxY - g.MinY)
}

// ToPixel maps a world coordinate into continuous pixel space. The
// returned values are fractional; pixel (c, r) covers [c, c+1)×[r, r+1).
func (g Grid) ToPixel(x, y float64) (px, py float64) {
	px = (x - g.MinX) / g.Resolution
	py = (g.MaxY - y) / g.Resolution
	return px, py
}
