package raster

import (
	"image"
	"image/png"
	"os"

	"github.com/rotisserie/eris"
)

// WritePNG writes an image to path as PNG.
func WritePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := png.Encode(f, img); err != nil {
		return eris.Wrapf(err, "raster: encode %s", path)
	}
	return nil
}

// ReadPNG reads a PNG from path as 8-bit grayscale. Images decoded in
// another color model are converted pixel by pixel.
func ReadPNG(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	img, err := png.Decode(f)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: decode %s", path)
	}

	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray, nil
}
