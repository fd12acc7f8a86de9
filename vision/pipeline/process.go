package pipeline

import (
	"context"
	"image"

	"go.opencensus.io/trace"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tapevision/rimage"
	"go.viam.com/tapevision/vision/tape"
	"go.viam.com/tapevision/vision/triangulation"
)

// Filters configures the candidate filters applied before pair selection.
type Filters struct {
	MinArea  float64
	MinWidth int
	// LegacyMeanWidth enables the mean width rule; see tape.NewMeanWidthFilter.
	LegacyMeanWidth bool
}

// DefaultFilters keeps blobs with an area over tape.DefaultMinArea.
func DefaultFilters() Filters {
	return Filters{MinArea: tape.DefaultMinArea}
}

// Result is everything one frame produced. Pair and Pose are nil when the frame had no
// usable target; Err then says why.
type Result struct {
	FrameWidth int
	Mask       *mat.Dense
	// Contours is the number of borders, holes included, found in the mask.
	Contours   int
	Candidates []tape.Candidate
	Pair       *tape.TargetPair
	Pose       *triangulation.Pose
	Err        error
}

// Processor runs the pipeline on single frames. It keeps no state between frames.
type Processor struct {
	geometry triangulation.Geometry
	filters  Filters
}

// NewProcessor validates geometry and returns a processor.
func NewProcessor(geometry triangulation.Geometry, filters Filters) (*Processor, error) {
	if err := geometry.Validate(); err != nil {
		return nil, err
	}
	return &Processor{geometry: geometry, filters: filters}, nil
}

// Process runs one frame through preprocessing, candidate selection and the solve.
func (p *Processor) Process(ctx context.Context, img image.Image) Result {
	ctx, span := trace.StartSpan(ctx, "tapevision::pipeline::Process")
	defer span.End()

	var res Result
	mask, err := Preprocess(ctx, img)
	if err != nil {
		res.Err = err
		return res
	}
	res.Mask = mask
	res.FrameWidth = img.Bounds().Dx()

	pair, err := p.selectPair(ctx, &res)
	if err != nil {
		res.Err = err
		return res
	}
	res.Pair = &pair

	pose, err := p.geometry.Solve(pair, res.FrameWidth)
	if err != nil {
		res.Err = err
		return res
	}
	res.Pose = &pose
	return res
}

func (p *Processor) selectPair(ctx context.Context, res *Result) (tape.TargetPair, error) {
	_, span := trace.StartSpan(ctx, "tapevision::pipeline::SelectPair")
	defer span.End()

	contours, hierarchy := rimage.FindContours(res.Mask)
	res.Contours = len(contours)
	raw := tape.CandidatesFrom(contours, hierarchy)
	filters := []tape.Filter{tape.NewAreaFilter(p.filters.MinArea)}
	if p.filters.MinWidth > 0 {
		filters = append(filters, tape.NewMinWidthFilter(p.filters.MinWidth))
	}
	if p.filters.LegacyMeanWidth {
		filters = append(filters, tape.NewMeanWidthFilter(res.Contours))
	}
	res.Candidates = tape.Chain(filters...)(raw)
	return tape.SelectPair(res.Candidates)
}

// Annotate draws the chosen pair and the pose, or "no target", over img.
func Annotate(img image.Image, res Result) image.Image {
	var boxes []image.Rectangle
	if res.Pair != nil {
		boxes = []image.Rectangle{res.Pair.Left.Rect(), res.Pair.Right.Rect()}
	}
	label := "no target"
	if res.Pose != nil {
		label = res.Pose.String()
	}
	return rimage.Overlay(img, boxes, label)
}
