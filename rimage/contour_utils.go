package rimage

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

// BorderType tells an outer border (the outside of a blob) from a hole border (the inside edge
// of a blob surrounding a background region).
type BorderType int

// Border types as in Suzuki & Abe, 1985.
const (
	Hole  BorderType = 1
	Outer BorderType = 2
)

// Contour is a closed boundary as an ordered list of pixel coordinates.
type Contour []image.Point

// ContourHierarchy links a contour to its neighbours in the nesting tree. Indices refer to the
// slice returned alongside by FindContours; -1 means none.
type ContourHierarchy struct {
	Type        BorderType
	Parent      int
	FirstChild  int
	NextSibling int
}

// 8-neighbourhood in clockwise order on screen (rows grow downward), starting east.
var neighbours = [8]image.Point{
	{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1},
	{X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
}

func directionOf(from, to image.Point) int {
	d := to.Sub(from)
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return -1
}

// FindContours traces every border of the binary image (any non-zero value is foreground) with
// the Suzuki-Abe border following algorithm and 8-connectivity. Both outer and hole borders are
// returned, in raster order of their starting pixel, together with the nesting hierarchy.
func FindContours(binary *mat.Dense) ([]Contour, []ContourHierarchy) {
	rows, cols := binary.Dims()
	// labels is the image padded by a one pixel frame of background; 1 marks an unvisited
	// foreground pixel, +/-n marks pixels on the border numbered n.
	labels := make([][]int, rows+2)
	for r := range labels {
		labels[r] = make([]int, cols+2)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if binary.At(r, c) != 0 {
				labels[r+1][c+1] = 1
			}
		}
	}
	at := func(p image.Point) int { return labels[p.Y][p.X] }

	// border 1 is the frame, which counts as a hole border.
	types := []BorderType{0, Hole}
	parents := []int{-1, -1}
	var contours []Contour

	nbd := 1
	for r := 1; r <= rows; r++ {
		lnbd := 1
		for c := 1; c <= cols; c++ {
			v := labels[r][c]
			if v == 0 {
				continue
			}
			start := image.Point{X: c, Y: r}
			var from image.Point
			var kind BorderType
			switch {
			case v == 1 && labels[r][c-1] == 0:
				kind = Outer
				from = image.Point{X: c - 1, Y: r}
			case v >= 1 && labels[r][c+1] == 0:
				kind = Hole
				from = image.Point{X: c + 1, Y: r}
				if v > 1 {
					lnbd = v
				}
			default:
				if v != 1 {
					lnbd = absInt(v)
				}
				continue
			}

			nbd++
			parent := lnbd
			if (kind == Outer) == (types[lnbd] == Outer) {
				parent = parents[lnbd]
			}
			types = append(types, kind)
			parents = append(parents, parent)
			contours = append(contours, traceBorder(labels, at, start, from, nbd))

			if w := labels[r][c]; w != 1 {
				lnbd = absInt(w)
			}
		}
	}

	return contours, buildHierarchy(types, parents)
}

// traceBorder follows one border starting at start, whose background neighbour is from, and
// labels it with nbd. It returns the border pixels in image coordinates.
func traceBorder(labels [][]int, at func(image.Point) int, start, from image.Point, nbd int) Contour {
	unpad := func(p image.Point) image.Point { return image.Point{X: p.X - 1, Y: p.Y - 1} }

	// clockwise search for the first non-zero neighbour of start.
	d0 := directionOf(start, from)
	first := image.Point{X: -1}
	for k := 0; k < 8; k++ {
		p := start.Add(neighbours[(d0+k)%8])
		if at(p) != 0 {
			first = p
			break
		}
	}
	if first.X == -1 {
		labels[start.Y][start.X] = -nbd
		return Contour{unpad(start)}
	}

	contour := Contour{unpad(start)}
	prev, cur := first, start
	for {
		// counterclockwise search around cur, starting just after prev.
		dPrev := directionOf(cur, prev)
		var next image.Point
		eastExamined := false
		for k := 1; k <= 8; k++ {
			d := ((dPrev-k)%8 + 8) % 8
			p := cur.Add(neighbours[d])
			if at(p) != 0 {
				next = p
				break
			}
			if d == 0 {
				eastExamined = true
			}
		}

		switch {
		case eastExamined:
			labels[cur.Y][cur.X] = -nbd
		case labels[cur.Y][cur.X] == 1:
			labels[cur.Y][cur.X] = nbd
		}

		if next == start && cur == first {
			return contour
		}
		contour = append(contour, unpad(next))
		prev, cur = cur, next
	}
}

func buildHierarchy(types []BorderType, parents []int) []ContourHierarchy {
	n := len(types) - 2
	hierarchy := make([]ContourHierarchy, n)
	for i := range hierarchy {
		hierarchy[i] = ContourHierarchy{Type: types[i+2], Parent: parents[i+2] - 2, FirstChild: -1, NextSibling: -1}
		if hierarchy[i].Parent < 0 {
			hierarchy[i].Parent = -1
		}
	}
	lastChild := make(map[int]int)
	for i := range hierarchy {
		p := hierarchy[i].Parent
		if prev, ok := lastChild[p]; ok {
			hierarchy[prev].NextSibling = i
		} else if p >= 0 {
			hierarchy[p].FirstChild = i
		}
		lastChild[p] = i
	}
	return hierarchy
}

// ContourArea returns the area enclosed by the polygon through the contour's points (shoelace
// formula). Like OpenCV's contourArea it measures between pixel centres, so a filled w x h
// rectangle yields (w-1)*(h-1).
func ContourArea(c Contour) float64 {
	if len(c) < 3 {
		return 0
	}
	var sum float64
	for i := range c {
		p, q := c[i], c[(i+1)%len(c)]
		sum += float64(p.X*q.Y - q.X*p.Y)
	}
	return math.Abs(sum) / 2
}

// BoundingRect returns the smallest rectangle containing every pixel of the contour. Max is
// exclusive, so Dx and Dy are pixel counts.
func BoundingRect(c Contour) image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: c[0], Max: c[0]}
	for _, p := range c[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.X > r.Max.X {
			r.Max.X = p.X
		}
		if p.Y > r.Max.Y {
			r.Max.Y = p.Y
		}
	}
	r.Max = r.Max.Add(image.Point{X: 1, Y: 1})
	return r
}

// SimplifyContour keeps only the end points of straight horizontal, vertical and diagonal runs.
// Area and bounding box are unchanged.
func SimplifyContour(c Contour) Contour {
	if len(c) < 3 {
		return append(Contour(nil), c...)
	}
	out := make(Contour, 0, len(c))
	for i := range c {
		prev := c[(i+len(c)-1)%len(c)]
		next := c[(i+1)%len(c)]
		if c[i].Sub(prev) == next.Sub(c[i]) {
			continue
		}
		out = append(out, c[i])
	}
	if len(out) == 0 {
		return Contour{c[0]}
	}
	return out
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
