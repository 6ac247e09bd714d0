package host

import (
	"image"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// WriteScreenshot encodes img as a PNG, scaled up by an integer factor with
// nearest-neighbour sampling so pixels stay sharp.
func WriteScreenshot(w io.Writer, img image.Image, scale int) error {
	if scale > 1 {
		b := img.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}
	return png.Encode(w, img)
}

// SaveScreenshot writes a scaled PNG of img to filename.
func SaveScreenshot(filename string, img image.Image, scale int) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteScreenshot(f, img, scale); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
