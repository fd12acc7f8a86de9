package rimage

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ITU-R BT.601 luma weights, the same ones OpenCV applies for BGR2GRAY.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Luminance returns the luma of c on a 0-255 scale, rounded to the nearest integer level.
func Luminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return math.Round(lumaR*float64(r>>8) + lumaG*float64(g>>8) + lumaB*float64(b>>8))
}

// ConvertColorImageToLuminanceFloat reduces an image to a single channel matrix of luma values
// in [0, 255], indexed (row, col) = (y, x) relative to the image's bounds.
func ConvertColorImageToLuminanceFloat(img image.Image) *mat.Dense {
	bounds := img.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	out := mat.NewDense(rows, cols, nil)
	switch im := img.(type) {
	case *image.Gray:
		for y := 0; y < rows; y++ {
			off := im.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			for x := 0; x < cols; x++ {
				out.Set(y, x, float64(im.Pix[off+x]))
			}
		}
	case *image.YCbCr:
		// the Y plane of a JPEG frame already is BT.601 luma.
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				out.Set(y, x, float64(im.Y[im.YOffset(bounds.Min.X+x, bounds.Min.Y+y)]))
			}
		}
	default:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				out.Set(y, x, Luminance(img.At(bounds.Min.X+x, bounds.Min.Y+y)))
			}
		}
	}
	return out
}

// MatToGray converts a single channel matrix back into an 8 bit gray image, saturating values
// outside [0, 255].
func MatToGray(m *mat.Dense) *image.Gray {
	rows, cols := m.Dims()
	out := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := math.Round(m.At(y, x))
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			out.Pix[out.PixOffset(x, y)] = uint8(v)
		}
	}
	return out
}

// SameImgSize compares images to see if they're the same size.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Dx() == g2.Bounds().Dx() && g1.Bounds().Dy() == g2.Bounds().Dy()
}
