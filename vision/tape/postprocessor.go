package tape

import (
	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
)

// Filter drops candidates that cannot be tape targets. Filters keep the input order.
type Filter func([]Candidate) []Candidate

// DefaultMinArea is the contour area below which a blob is treated as noise.
const DefaultMinArea = 100

// NewAreaFilter keeps candidates whose contour area is strictly greater than minArea.
func NewAreaFilter(minArea float64) Filter {
	return func(in []Candidate) []Candidate {
		return lo.Filter(in, func(c Candidate, _ int) bool { return c.Box.Area > minArea })
	}
}

// NewMinWidthFilter keeps candidates at least minWidth pixels wide. A minWidth of 0 keeps all.
func NewMinWidthFilter(minWidth int) Filter {
	return func(in []Candidate) []Candidate {
		return lo.Filter(in, func(c Candidate, _ int) bool { return c.Box.Width >= minWidth })
	}
}

// NewMeanWidthFilter drops candidates narrower than the average width, where the widths of the
// input are summed but divided by rawCount, the number of contours found before any other
// filtering. A single large spurious blob raises the average enough to reject real targets,
// which is why this filter is only used when explicitly enabled. rawCount <= 0 divides by the
// number of candidates instead.
func NewMeanWidthFilter(rawCount int) Filter {
	return func(in []Candidate) []Candidate {
		if len(in) == 0 {
			return in
		}
		widths := lo.Map(in, func(c Candidate, _ int) float64 { return float64(c.Box.Width) })
		var mean float64
		if rawCount <= 0 {
			mean, _ = stats.Mean(widths)
		} else {
			sum, _ := stats.Sum(widths)
			mean = sum / float64(rawCount)
		}
		return lo.Filter(in, func(c Candidate, _ int) bool { return float64(c.Box.Width) >= mean })
	}
}

// Chain applies filters in order.
func Chain(filters ...Filter) Filter {
	return func(in []Candidate) []Candidate {
		out := in
		for _, f := range filters {
			if f == nil {
				continue
			}
			out = f(out)
		}
		return out
	}
}
