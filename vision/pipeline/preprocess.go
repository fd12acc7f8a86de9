// Package pipeline runs the per frame targeting pipeline: preprocessing, contour extraction,
// pair selection, the geometry solve, publishing.
package pipeline

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tapevision/rimage"
)

// ErrNoFrame is returned for a nil or empty frame.
var ErrNoFrame = errors.New("no frame")

// Fixed preprocessing parameters, tuned for green LED ring light on retro-reflective tape.
const (
	KernelSize       = 3
	ErodeIterations  = 2
	DilateIterations = 4
	ThresholdValue   = 170
	MaskValue        = 255
)

// Preprocess turns a color frame into the binary target mask: luminance, erosion, dilation,
// threshold.
func Preprocess(ctx context.Context, img image.Image) (*mat.Dense, error) {
	ctx, span := trace.StartSpan(ctx, "tapevision::pipeline::Preprocess")
	defer span.End()

	if img == nil || img.Bounds().Empty() {
		return nil, ErrNoFrame
	}
	gray := luminance(ctx, img)
	eroded, err := rimage.ErodeSquareN(gray, KernelSize, ErodeIterations)
	if err != nil {
		return nil, errors.Wrap(err, "erode")
	}
	dilated, err := rimage.DilateSquareN(eroded, KernelSize, DilateIterations)
	if err != nil {
		return nil, errors.Wrap(err, "dilate")
	}
	return rimage.Threshold(dilated, ThresholdValue, MaskValue), nil
}

func luminance(ctx context.Context, img image.Image) *mat.Dense {
	_, span := trace.StartSpan(ctx, "tapevision::pipeline::Luminance")
	defer span.End()
	return rimage.ConvertColorImageToLuminanceFloat(img)
}
