package raster

import (
	"image"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/opencolorado/datamap/internal/vector"
)

// Rasterize burns a projected feature set into a fresh 8-bit grayscale
// image at the grid's resolution. Polygons burn at their own area-derived
// intensity; points and lines burn at the policy's constants. Pixels no
// feature touches stay 0. Where features overlap, the stronger intensity
// wins, which keeps the result independent of feature order.
func Rasterize(fs *vector.FeatureSet, grid Grid, policy BurnPolicy) (*image.Gray, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	img := image.NewGray(image.Rect(0, 0, grid.Width(), grid.Height()))

	burned := 0
	for i, g := range fs.Geoms {
		var err error
		switch fs.Type {
		case vector.Polygon:
			err = burnPolygon(img, grid, policy, g)
		case vector.Line:
			err = burnLine(img, grid, policy.LineValue, g)
		case vector.Point:
			err = burnPoint(img, grid, policy.PointValue, g)
		default:
			err = eris.Errorf("raster: unsupported geometry type %s", fs.Type)
		}
		if err != nil {
			return nil, eris.Wrapf(err, "raster: feature %d", i)
		}
		burned++
	}

	zap.L().Debug("rasterized feature set",
		zap.String("type", fs.Type.String()),
		zap.Int("features", burned),
		zap.Int("width", grid.Width()),
		zap.Int("height", grid.Height()),
	)

	return img, nil
}

func burnPolygon(img *image.Gray, grid Grid, policy BurnPolicy, g geom.T) error {
	mp, ok := g.(*geom.MultiPolygon)
	if !ok {
		return eris.Errorf("expected MultiPolygon, got %T", g)
	}

	area := math.Abs(mp.Area())
	value := policy.Polygon(area)
	if value == 0 {
		return nil
	}

	// Collect every ring of every part in pixel space. Even-odd filling
	// makes holes fall out naturally regardless of ring winding.
	var rings [][]float64
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for r := 0; r < poly.NumLinearRings(); r++ {
			rings = append(rings, ringToPixels(poly.LinearRing(r), grid))
		}
	}

	fillEvenOdd(img, rings, value)
	return nil
}

func ringToPixels(ring *geom.LinearRing, grid Grid) []float64 {
	flat := ring.FlatCoords()
	stride := ring.Stride()
	px := make([]float64, 0, len(flat)/stride*2)
	for i := 0; i+1 < len(flat); i += stride {
		x, y := grid.ToPixel(flat[i], flat[i+1])
		px = append(px, x, y)
	}
	return px
}

// fillEvenOdd scanline-fills the rings with the classic even-odd rule:
// each scanline collects its edge crossings, sorts them, and fills
// alternate spans. Scanlines sample pixel centers (row + 0.5).
func fillEvenOdd(img *image.Gray, rings [][]float64, value uint8) {
	bounds := img.Bounds()
	height := bounds.Dy()
	width := bounds.Dx()

	var xs []float64
	for row := 0; row < height; row++ {
		yc := float64(row) + 0.5
		xs = xs[:0]

		for _, ring := range rings {
			n := len(ring) / 2
			if n < 3 {
				continue
			}
			for i := 0; i < n; i++ {
				j := (i + 1) % n
				y1, y2 := ring[i*2+1], ring[j*2+1]
				if (y1 <= yc) == (y2 <= yc) {
					continue // edge does not cross this scanline
				}
				x1, x2 := ring[i*2], ring[j*2]
				xs = append(xs, x1+(yc-y1)*(x2-x1)/(y2-y1))
			}
		}

		if len(xs) < 2 {
			continue
		}
		sort.Float64s(xs)

		for i := 0; i+1 < len(xs); i += 2 {
			// A pixel is filled when its center lies inside the span.
			start := int(math.Ceil(xs[i] - 0.5))
			end := int(math.Floor(xs[i+1] - 0.5))
			if start < 0 {
				start = 0
			}
			if end >= width {
				end = width - 1
			}
			for col := start; col <= end; col++ {
				setMax(img, col, row, value)
			}
		}
	}
}

func burnLine(img *image.Gray, grid Grid, value uint8, g geom.T) error {
	mls, ok := g.(*geom.MultiLineString)
	if !ok {
		return eris.Errorf("expected MultiLineString, got %T", g)
	}
	if value == 0 {
		return nil
	}

	for i := 0; i < mls.NumLineStrings(); i++ {
		coords := mls.LineString(i).Coords()
		for j := 0; j+1 < len(coords); j++ {
			x1, y1 := grid.ToPixel(coords[j][0], coords[j][1])
			x2, y2 := grid.ToPixel(coords[j+1][0], coords[j+1][1])
			drawSegment(img, x1, y1, x2, y2, value)
		}
	}
	return nil
}

// drawSegment rasterizes one line segment with integer Bresenham.
func drawSegment(img *image.Gray, x1, y1, x2, y2 float64, value uint8) {
	c1, r1 := int(math.Floor(x1)), int(math.Floor(y1))
	c2, r2 := int(math.Floor(x2)), int(math.Floor(y2))

	dx := abs(c2 - c1)
	dy := -abs(r2 - r1)
	sx, sy := 1, 1
	if c1 > c2 {
		sx = -1
	}
	if r1 > r2 {
		sy = -1
	}
	err := dx + dy

	for {
		setMax(img, c1, r1, value)
		if c1 == c2 && r1 == r2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			c1 += sx
		}
		if e2 <= dx {
			err += dx
			r1 += sy
		}
	}
}

func burnPoint(img *image.Gray, grid Grid, value uint8, g geom.T) error {
	if value == 0 {
		return nil
	}
	switch t := g.(type) {
	case *geom.Point:
		c := t.Coords()
		px, py := grid.ToPixel(c[0], c[1])
		setMax(img, int(math.Floor(px)), int(math.Floor(py)), value)
	case *geom.MultiPoint:
		for i := 0; i < t.NumPoints(); i++ {
			c := t.Point(i).Coords()
			px, py := grid.ToPixel(c[0], c[1])
			setMax(img, int(math.Floor(px)), int(math.Floor(py)), value)
		}
	default:
		return eris.Errorf("expected Point or MultiPoint, got %T", g)
	}
	return nil
}

// setMax writes value at (col, row) unless a stronger burn is already
// there. Coordinates outside the grid are clipped silently.
func setMax(img *image.Gray, col, row int, value uint8) {
	bounds := img.Bounds()
	if col < bounds.Min.X || col >= bounds.Max.X || row < bounds.Min.Y || row >= bounds.Max.Y {
		return
	}
	idx := img.PixOffset(col, row)
	if img.Pix[idx] < value {
		img.Pix[idx] = value
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
