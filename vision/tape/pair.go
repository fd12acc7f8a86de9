package tape

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrNotEnoughTargets is returned when fewer than two candidates survive filtering. It is the
// normal outcome for most frames and not a failure of the pipeline.
var ErrNotEnoughTargets = errors.New("fewer than two tape targets in frame")

// TargetPair holds the two selected targets ordered by horizontal position, Left.X <= Right.X.
type TargetPair struct {
	Left  BoundingBox
	Right BoundingBox
}

// Primary is the taller target, the left one on a tie. Being taller it is the nearer one.
func (p TargetPair) Primary() (box BoundingBox, isLeft bool) {
	if p.Right.Height > p.Left.Height {
		return p.Right, false
	}
	return p.Left, true
}

// Secondary is the target that is not Primary.
func (p TargetPair) Secondary() BoundingBox {
	if _, isLeft := p.Primary(); isLeft {
		return p.Right
	}
	return p.Left
}

// SelectPair keeps the two largest candidates by area, ties going to the one that came first,
// and orders them left to right. Equal X keeps the larger one on the left.
func SelectPair(cands []Candidate) (TargetPair, error) {
	if len(cands) < 2 {
		return TargetPair{}, ErrNotEnoughTargets
	}
	boxes := Boxes(cands)
	sort.SliceStable(boxes, func(i, j int) bool { return boxes[i].Area > boxes[j].Area })
	a, b := boxes[0], boxes[1]
	if b.X < a.X {
		a, b = b, a
	}
	return TargetPair{Left: a, Right: b}, nil
}
