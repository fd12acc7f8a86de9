package rimage

import (
	"gonum.org/v1/gonum/mat"
)

// Threshold binarizes img: values strictly greater than thresh become maxVal, everything else 0.
func Threshold(img *mat.Dense, thresh, maxVal float64) *mat.Dense {
	rows, cols := img.Dims()
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(r, c int, v float64) float64 {
		if v > thresh {
			return maxVal
		}
		return 0
	}, img)
	return out
}
