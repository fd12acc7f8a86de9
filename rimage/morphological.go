package rimage

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErodeSquare replaces each pixel with the minimum over a kernelSize x kernelSize square centered
// on it. Pixels outside the image are ignored, which matches OpenCV's default morphology border.
func ErodeSquare(img *mat.Dense, kernelSize int) (*mat.Dense, error) {
	return morphoSquare(img, kernelSize, math.Min)
}

// DilateSquare replaces each pixel with the maximum over a kernelSize x kernelSize square.
func DilateSquare(img *mat.Dense, kernelSize int) (*mat.Dense, error) {
	return morphoSquare(img, kernelSize, math.Max)
}

// ErodeSquareN applies ErodeSquare iterations times.
func ErodeSquareN(img *mat.Dense, kernelSize, iterations int) (*mat.Dense, error) {
	return repeat(img, kernelSize, iterations, ErodeSquare)
}

// DilateSquareN applies DilateSquare iterations times.
func DilateSquareN(img *mat.Dense, kernelSize, iterations int) (*mat.Dense, error) {
	return repeat(img, kernelSize, iterations, DilateSquare)
}

func repeat(
	img *mat.Dense, kernelSize, iterations int,
	op func(*mat.Dense, int) (*mat.Dense, error),
) (*mat.Dense, error) {
	if iterations < 0 {
		return nil, errors.Errorf("iterations must be non-negative, got %d", iterations)
	}
	out := mat.DenseCopyOf(img)
	for i := 0; i < iterations; i++ {
		var err error
		out, err = op(out, kernelSize)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// morphoSquare runs a square min/max filter as a row pass followed by a column pass; a square
// structuring element is separable for both operations.
func morphoSquare(img *mat.Dense, kernelSize int, pick func(a, b float64) float64) (*mat.Dense, error) {
	if kernelSize < 1 || kernelSize%2 == 0 {
		return nil, errors.Errorf("kernel size must be a positive odd number, got %d", kernelSize)
	}
	rows, cols := img.Dims()
	radius := kernelSize / 2

	horizontal := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := img.At(r, c)
			for k := maxInt(0, c-radius); k <= minInt(cols-1, c+radius); k++ {
				v = pick(v, img.At(r, k))
			}
			horizontal.Set(r, c, v)
		}
	}
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := horizontal.At(r, c)
			for k := maxInt(0, r-radius); k <= minInt(rows-1, r+radius); k++ {
				v = pick(v, horizontal.At(k, c))
			}
			out.Set(r, c, v)
		}
	}
	return out, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a < b {
		return b
	}
	return a
}
