package rimage

import (
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// DefaultJPEGQuality is used for the debug stream and for written overlays.
const DefaultJPEGQuality = 80

// ReadImageFromFile decodes the image stored at path. The format is picked from the file
// contents; EXIF orientation is applied.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read image %q", path)
	}
	return img, nil
}

// WriteImageToFile encodes img to path, choosing the format from the extension.
func WriteImageToFile(path string, img image.Image) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(DefaultJPEGQuality)); err != nil {
		return errors.Wrapf(err, "cannot write image %q", path)
	}
	return nil
}

// EncodeJPEG writes img to w as a JPEG of the given quality (1-100).
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

// ResizeImage scales img to exactly w x h. A zero or negative size leaves img untouched.
func ResizeImage(img image.Image, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return img
	}
	if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Linear)
}
