package raster

import (
	"math"

	"github.com/opencolorado/datamap/internal/config"
)

// BurnPolicy computes the intensity a feature contributes when burned
// into the grid. Polygons are weighted by area: a parcel should count,
// a statewide district should not, because sheer polygon size says
// nothing about data density. Points and lines burn at fixed constants.
type BurnPolicy struct {
	// MaxSignificantArea is the polygon area at or above which the burn
	// value is zero (bounding-box area × configured ratio).
	MaxSignificantArea float64

	// DecayRate controls how fast weight falls off as area grows. The
	// root-power transform 1-(a/max)^(1/decay) keeps small features near
	// full weight and decays smoothly to zero at the threshold.
	DecayRate float64

	// PointValue and LineValue are the constant intensities for
	// non-polygon geometry.
	PointValue uint8
	LineValue  uint8
}

// NewBurnPolicy derives a policy from the grid extent and burn settings.
func NewBurnPolicy(grid Grid, cfg config.BurnConfig) BurnPolicy {
	return BurnPolicy{
		MaxSignificantArea: grid.Area() * cfg.MaxAreaRatio,
		DecayRate:          cfg.DecayRate,
		PointValue:         clampByte(cfg.PointValue),
		LineValue:          clampByte(cfg.LineValue),
	}
}

// Polygon returns the burn value for a polygon of the given area.
// Degenerate (zero or negative) areas and areas at or above the
// significance threshold contribute nothing.
func (p BurnPolicy) Polygon(area float64) uint8 {
	if area <= 0 || area >= p.MaxSignificantArea {
		return 0
	}
	fraction := 1 - math.Pow(area/p.MaxSignificantArea, 1/p.DecayRate)
	return uint8(math.Floor(fraction * 255))
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
