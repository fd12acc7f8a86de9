package rimage

import (
	"image"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func fillRect(m *mat.Dense, r image.Rectangle, v float64) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Set(y, x, v)
		}
	}
}

func TestBorderType(t *testing.T) {
	test.That(t, Hole, test.ShouldEqual, 1)
	test.That(t, Outer, test.ShouldEqual, 2)
}

func TestFindContoursRectangle(t *testing.T) {
	m := mat.NewDense(8, 10, nil)
	fillRect(m, image.Rect(2, 1, 7, 5), 255)

	contours, hierarchy := FindContours(m)
	test.That(t, contours, test.ShouldHaveLength, 1)
	test.That(t, hierarchy, test.ShouldResemble, []ContourHierarchy{
		{Type: Outer, Parent: -1, FirstChild: -1, NextSibling: -1},
	})
	c := contours[0]
	test.That(t, c[0], test.ShouldResemble, image.Point{X: 2, Y: 1})
	// every boundary pixel of a 5 x 4 block, each once
	test.That(t, c, test.ShouldHaveLength, 2*5+2*4-4)
	test.That(t, ContourArea(c), test.ShouldEqual, 12.0)
	test.That(t, BoundingRect(c), test.ShouldResemble, image.Rect(2, 1, 7, 5))

	simple := SimplifyContour(c)
	test.That(t, simple, test.ShouldHaveLength, 4)
	test.That(t, ContourArea(simple), test.ShouldEqual, 12.0)
	test.That(t, BoundingRect(simple), test.ShouldResemble, image.Rect(2, 1, 7, 5))
}

func TestFindContoursNested(t *testing.T) {
	m := mat.NewDense(12, 12, nil)
	fillRect(m, image.Rect(1, 1, 11, 11), 255)
	fillRect(m, image.Rect(3, 3, 9, 9), 0)
	fillRect(m, image.Rect(5, 5, 7, 7), 255)

	contours, hierarchy := FindContours(m)
	test.That(t, contours, test.ShouldHaveLength, 3)
	test.That(t, hierarchy[0], test.ShouldResemble, ContourHierarchy{Type: Outer, Parent: -1, FirstChild: 1, NextSibling: -1})
	test.That(t, hierarchy[1], test.ShouldResemble, ContourHierarchy{Type: Hole, Parent: 0, FirstChild: 2, NextSibling: -1})
	test.That(t, hierarchy[2], test.ShouldResemble, ContourHierarchy{Type: Outer, Parent: 1, FirstChild: -1, NextSibling: -1})

	test.That(t, ContourArea(contours[0]), test.ShouldEqual, 81.0)
	test.That(t, BoundingRect(contours[0]), test.ShouldResemble, image.Rect(1, 1, 11, 11))
	test.That(t, ContourArea(contours[2]), test.ShouldEqual, 1.0)
	test.That(t, BoundingRect(contours[2]), test.ShouldResemble, image.Rect(5, 5, 7, 7))
}

func TestFindContoursSiblings(t *testing.T) {
	m := mat.NewDense(10, 20, nil)
	fillRect(m, image.Rect(12, 2, 16, 8), 1)
	fillRect(m, image.Rect(1, 4, 4, 6), 1)
	// single pixel blob
	m.Set(8, 8, 1)

	contours, hierarchy := FindContours(m)
	test.That(t, contours, test.ShouldHaveLength, 3)
	// raster order of the starting pixel
	test.That(t, BoundingRect(contours[0]), test.ShouldResemble, image.Rect(12, 2, 16, 8))
	test.That(t, BoundingRect(contours[1]), test.ShouldResemble, image.Rect(1, 4, 4, 6))
	test.That(t, contours[2], test.ShouldResemble, Contour{{X: 8, Y: 8}})
	test.That(t, ContourArea(contours[2]), test.ShouldEqual, 0.0)

	for i, h := range hierarchy {
		test.That(t, h.Type, test.ShouldEqual, Outer)
		test.That(t, h.Parent, test.ShouldEqual, -1)
		test.That(t, h.FirstChild, test.ShouldEqual, -1)
		if i < len(hierarchy)-1 {
			test.That(t, h.NextSibling, test.ShouldEqual, i+1)
		} else {
			test.That(t, h.NextSibling, test.ShouldEqual, -1)
		}
	}
}

func TestFindContoursEmpty(t *testing.T) {
	contours, hierarchy := FindContours(mat.NewDense(4, 4, nil))
	test.That(t, contours, test.ShouldBeEmpty)
	test.That(t, hierarchy, test.ShouldBeEmpty)
}

func TestFindContoursLine(t *testing.T) {
	m := mat.NewDense(3, 6, nil)
	fillRect(m, image.Rect(1, 1, 5, 2), 1)
	contours, _ := FindContours(m)
	test.That(t, contours, test.ShouldHaveLength, 1)
	test.That(t, ContourArea(contours[0]), test.ShouldEqual, 0.0)
	test.That(t, BoundingRect(contours[0]), test.ShouldResemble, image.Rect(1, 1, 5, 2))
}

func TestContourAreaDegenerate(t *testing.T) {
	test.That(t, ContourArea(nil), test.ShouldEqual, 0.0)
	test.That(t, ContourArea(Contour{{X: 1, Y: 1}, {X: 2, Y: 2}}), test.ShouldEqual, 0.0)
	test.That(t, BoundingRect(nil), test.ShouldResemble, image.Rectangle{})
	// triangle, either winding
	tri := Contour{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 3}}
	test.That(t, ContourArea(tri), test.ShouldEqual, 6.0)
	test.That(t, ContourArea(Contour{tri[2], tri[1], tri[0]}), test.ShouldEqual, 6.0)
}
