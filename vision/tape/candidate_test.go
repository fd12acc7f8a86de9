package tape

import (
	"image"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func maskWith(w, h int, rects ...image.Rectangle) *mat.Dense {
	m := mat.NewDense(h, w, nil)
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				m.Set(y, x, 255)
			}
		}
	}
	return m
}

func TestFindCandidates(t *testing.T) {
	t.Run("empty mask", func(t *testing.T) {
		test.That(t, FindCandidates(mat.NewDense(10, 10, nil)), test.ShouldBeEmpty)
	})

	t.Run("hole borders are skipped", func(t *testing.T) {
		m := maskWith(20, 20, image.Rect(2, 2, 18, 18))
		for y := 6; y < 14; y++ {
			for x := 6; x < 14; x++ {
				m.Set(y, x, 0)
			}
		}
		cands := FindCandidates(m)
		test.That(t, cands, test.ShouldHaveLength, 1)
		test.That(t, cands[0].Box, test.ShouldResemble, BoundingBox{X: 2, Y: 2, Width: 16, Height: 16, Area: 225})
	})

	t.Run("boxes", func(t *testing.T) {
		cands := FindCandidates(maskWith(40, 30, image.Rect(25, 5, 30, 25), image.Rect(3, 10, 13, 14)))
		test.That(t, Boxes(cands), test.ShouldResemble, []BoundingBox{
			{X: 25, Y: 5, Width: 5, Height: 20, Area: 4 * 19},
			{X: 3, Y: 10, Width: 10, Height: 4, Area: 9 * 3},
		})
		test.That(t, cands[0].Box.Rect(), test.ShouldResemble, image.Rect(25, 5, 30, 25))
		test.That(t, cands[0].Box.CenterX(), test.ShouldEqual, 27.5)
		// corners only
		test.That(t, cands[0].Contour, test.ShouldHaveLength, 4)
	})
}

func TestFilters(t *testing.T) {
	cands := []Candidate{
		{Box: BoundingBox{X: 0, Width: 2, Area: 50}},
		{Box: BoundingBox{X: 1, Width: 10, Area: 100}},
		{Box: BoundingBox{X: 2, Width: 4, Area: 101}},
		{Box: BoundingBox{X: 3, Width: 30, Area: 900}},
	}

	kept := NewAreaFilter(DefaultMinArea)(cands)
	test.That(t, Boxes(kept), test.ShouldResemble, []BoundingBox{cands[2].Box, cands[3].Box})

	kept = NewMinWidthFilter(5)(cands)
	test.That(t, Boxes(kept), test.ShouldResemble, []BoundingBox{cands[1].Box, cands[3].Box})
	test.That(t, NewMinWidthFilter(0)(cands), test.ShouldHaveLength, 4)

	t.Run("mean width over candidates", func(t *testing.T) {
		// mean width is 11.5
		kept := NewMeanWidthFilter(0)(cands)
		test.That(t, Boxes(kept), test.ShouldResemble, []BoundingBox{cands[3].Box})
	})

	t.Run("mean width over raw contour count", func(t *testing.T) {
		// (4 + 30) / 10 = 3.4, so the narrow target survives
		kept := Chain(NewAreaFilter(100), NewMeanWidthFilter(10))(cands)
		test.That(t, Boxes(kept), test.ShouldResemble, []BoundingBox{cands[2].Box, cands[3].Box})
	})

	t.Run("large blob skews the mean", func(t *testing.T) {
		skewed := append([]Candidate{}, cands[2:]...)
		skewed = append(skewed, Candidate{Box: BoundingBox{X: 9, Width: 300, Area: 5000}})
		kept := NewMeanWidthFilter(len(skewed))(skewed)
		test.That(t, kept, test.ShouldHaveLength, 1)
		test.That(t, kept[0].Box.Width, test.ShouldEqual, 300)
	})

	test.That(t, NewMeanWidthFilter(3)(nil), test.ShouldBeEmpty)
	test.That(t, Chain()(cands), test.ShouldHaveLength, 4)
	test.That(t, Chain(nil, NewAreaFilter(1000))(cands), test.ShouldBeEmpty)
}
