// Package composite folds per-dataset rasters into the final heat map.
//
// The accumulator is 16 bits per pixel so that summing hundreds of 8-bit
// rasters cannot overflow, and the final rescale maps the densest pixel
// across the whole catalog to 255. Addition is commutative, so the
// composite is independent of the order rasters arrive in.
package composite

import (
	"image"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opencolorado/datamap/internal/raster"
)

// Accumulator sums 8-bit grayscale rasters of identical dimensions.
type Accumulator struct {
	width  int
	height int
	sum    []uint16
	count  int
}

// NewAccumulator creates an accumulator for rasters of the given size.
func NewAccumulator(width, height int) (*Accumulator, error) {
	if width <= 0 || height <= 0 {
		return nil, eris.Errorf("composite: invalid dimensions %dx%d", width, height)
	}
	return &Accumulator{
		width:  width,
		height: height,
		sum:    make([]uint16, width*height),
	}, nil
}

// Add sums an image elementwise into the accumulator. The image must
// match the accumulator's dimensions exactly: all per-dataset rasters
// share one grid, so a mismatch means a stale or foreign file.
func (a *Accumulator) Add(img *image.Gray) error {
	b := img.Bounds()
	if b.Dx() != a.width || b.Dy() != a.height {
		return eris.Errorf("composite: dimension mismatch, accumulator %dx%d vs image %dx%d",
			a.width, a.height, b.Dx(), b.Dy())
	}

	for row := 0; row < a.height; row++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+row)
		base := row * a.width
		for col := 0; col < a.width; col++ {
			a.sum[base+col] += uint16(img.Pix[off+col])
		}
	}
	a.count++
	return nil
}

// Count returns how many rasters have been added.
func (a *Accumulator) Count() int {
	return a.count
}

// Max returns the largest accumulated pixel value.
func (a *Accumulator) Max() uint16 {
	var max uint16
	for _, v := range a.sum {
		if v > max {
			max = v
		}
	}
	return max
}

// Render rescales the accumulated sums back into an 8-bit grayscale
// image. The maximum pixel maps to 255; every other pixel becomes its
// proportional rank against that maximum. A completely empty accumulator
// renders as all background with no division.
func (a *Accumulator) Render() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, a.width, a.height))

	max := a.Max()
	if max == 0 {
		return img
	}

	divisor := float64(max) / 255.0
	for i, v := range a.sum {
		img.Pix[i] = uint8(math.Floor(float64(v) / divisor))
	}

	zap.L().Debug("composite rendered",
		zap.Int("rasters", a.count),
		zap.Uint16("max", max),
		zap.Float64("divisor", divisor),
	)

	return img
}

// Files sums the rasters at the given paths and renders the composite.
// The result does not depend on path order.
func Files(paths []string) (*image.Gray, error) {
	if len(paths) == 0 {
		return nil, eris.New("composite: no rasters to composite")
	}

	var acc *Accumulator
	for _, path := range paths {
		img, err := raster.ReadPNG(path)
		if err != nil {
			return nil, eris.Wrapf(err, "composite: load %s", path)
		}

		if acc == nil {
			acc, err = NewAccumulator(img.Bounds().Dx(), img.Bounds().Dy())
			if err != nil {
				return nil, err
			}
		}

		if err := acc.Add(img); err != nil {
			return nil, eris.Wrapf(err, "composite: %s", path)
		}
	}

	return acc.Render(), nil
}
