// Package tape finds retro-reflective tape targets in a binary mask and picks the pair the
// geometry solver works on.
package tape

import (
	"image"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tapevision/rimage"
)

// BoundingBox is the axis aligned box of one contour. Area is the contour's own area, which is
// smaller than Width*Height for anything that is not a solid rectangle.
type BoundingBox struct {
	X      int
	Y      int
	Width  int
	Height int
	Area   float64
}

// NewBoundingBox builds the box of a contour.
func NewBoundingBox(c rimage.Contour) BoundingBox {
	r := rimage.BoundingRect(c)
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy(), Area: rimage.ContourArea(c)}
}

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// CenterX is the horizontal centre of the box in pixels.
func (b BoundingBox) CenterX() float64 {
	return float64(b.X) + float64(b.Width)/2
}

// Candidate is an outer contour that may be a tape target.
type Candidate struct {
	Contour rimage.Contour
	Box     BoundingBox
}

// FindCandidates returns one candidate per outer border of the mask, in raster order of the
// border's first pixel. Hole borders are never candidates.
func FindCandidates(binary *mat.Dense) []Candidate {
	return CandidatesFrom(rimage.FindContours(binary))
}

// CandidatesFrom keeps the outer borders of contours, as returned by rimage.FindContours.
func CandidatesFrom(contours []rimage.Contour, hierarchy []rimage.ContourHierarchy) []Candidate {
	outer := lo.Filter(contours, func(_ rimage.Contour, i int) bool {
		return hierarchy[i].Type == rimage.Outer
	})
	return lo.Map(outer, func(c rimage.Contour, _ int) Candidate {
		return Candidate{Contour: rimage.SimplifyContour(c), Box: NewBoundingBox(c)}
	})
}

// Boxes returns the boxes of the given candidates, in order.
func Boxes(cands []Candidate) []BoundingBox {
	return lo.Map(cands, func(c Candidate, _ int) BoundingBox { return c.Box })
}
