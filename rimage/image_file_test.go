package rimage

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestImageFileRoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 8))
	img.Set(3, 3, color.NRGBA{R: 255, A: 255})

	path := filepath.Join(t.TempDir(), "frame.png")
	test.That(t, WriteImageToFile(path, img), test.ShouldBeNil)

	read, err := ReadImageFromFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.Bounds(), test.ShouldResemble, img.Bounds())
	r, g, b, a := read.At(3, 3).RGBA()
	test.That(t, []uint32{r >> 8, g >> 8, b >> 8, a >> 8}, test.ShouldResemble, []uint32{255, 0, 0, 255})

	_, err = ReadImageFromFile(filepath.Join(t.TempDir(), "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing.png")
}

func TestEncodeJPEG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 8))
	var buf bytes.Buffer
	test.That(t, EncodeJPEG(&buf, img, DefaultJPEGQuality), test.ShouldBeNil)
	decoded, err := jpeg.Decode(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded.Bounds(), test.ShouldResemble, img.Bounds())
}

func TestResizeImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	test.That(t, ResizeImage(img, 10, 5).Bounds(), test.ShouldResemble, image.Rect(0, 0, 10, 5))
	test.That(t, ResizeImage(img, 0, 5), test.ShouldEqual, img)
	test.That(t, ResizeImage(img, 20, 10), test.ShouldEqual, img)
}
