package rimage

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestLuminance(t *testing.T) {
	test.That(t, Luminance(color.NRGBA{R: 255, A: 255}), test.ShouldEqual, 76.0)
	test.That(t, Luminance(color.NRGBA{G: 255, A: 255}), test.ShouldEqual, 150.0)
	test.That(t, Luminance(color.NRGBA{B: 255, A: 255}), test.ShouldEqual, 29.0)
	test.That(t, Luminance(color.White), test.ShouldEqual, 255.0)
	test.That(t, Luminance(color.Black), test.ShouldEqual, 0.0)
}

func TestConvertColorImageToLuminanceFloat(t *testing.T) {
	t.Run("rgba", func(t *testing.T) {
		img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
		img.Set(2, 1, color.NRGBA{R: 255, A: 255})
		img.Set(0, 0, color.White)
		m := ConvertColorImageToLuminanceFloat(img)
		r, c := m.Dims()
		test.That(t, r, test.ShouldEqual, 2)
		test.That(t, c, test.ShouldEqual, 3)
		test.That(t, m.At(1, 2), test.ShouldEqual, 76.0)
		test.That(t, m.At(0, 0), test.ShouldEqual, 255.0)
		test.That(t, m.At(0, 1), test.ShouldEqual, 0.0)
	})
	t.Run("gray with offset bounds", func(t *testing.T) {
		img := image.NewGray(image.Rect(10, 20, 14, 22))
		img.SetGray(13, 21, color.Gray{Y: 42})
		m := ConvertColorImageToLuminanceFloat(img)
		test.That(t, m.At(1, 3), test.ShouldEqual, 42.0)
	})
	t.Run("ycbcr uses the Y plane", func(t *testing.T) {
		img := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
		img.Y[img.YOffset(1, 2)] = 200
		m := ConvertColorImageToLuminanceFloat(img)
		test.That(t, m.At(2, 1), test.ShouldEqual, 200.0)
		test.That(t, m.At(0, 0), test.ShouldEqual, 0.0)
	})
}

func TestMatToGray(t *testing.T) {
	m := mat.NewDense(1, 3, []float64{-5, 128.4, 300})
	g := MatToGray(m)
	test.That(t, g.Bounds(), test.ShouldResemble, image.Rect(0, 0, 3, 1))
	test.That(t, g.GrayAt(0, 0).Y, test.ShouldEqual, uint8(0))
	test.That(t, g.GrayAt(1, 0).Y, test.ShouldEqual, uint8(128))
	test.That(t, g.GrayAt(2, 0).Y, test.ShouldEqual, uint8(255))
	test.That(t, SameImgSize(g, image.NewRGBA(image.Rect(5, 5, 8, 6))), test.ShouldBeTrue)
}
