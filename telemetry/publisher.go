package telemetry

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/tapevision/logging"
	"go.viam.com/tapevision/vision/tape"
	"go.viam.com/tapevision/vision/triangulation"
)

// Keys written to the table.
const (
	KeyAngle    = "angle"
	KeyDistance = "distance"
	KeyDetected = "detected"
	KeyX        = "x"
	KeyY        = "y"
	KeyWidth    = "w"
	KeyHeight   = "h"
)

// GapPolicy decides what is written for a frame without a pose.
type GapPolicy string

const (
	// GapOmit writes only detected=false; the controller keeps whatever it last read.
	GapOmit GapPolicy = "omit"
	// GapRepublish writes the last known pose again along with detected=false.
	GapRepublish GapPolicy = "republish"
)

// ParseGapPolicy accepts "omit" and "republish"; an empty string means omit.
func ParseGapPolicy(s string) (GapPolicy, error) {
	switch GapPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", GapOmit:
		return GapOmit, nil
	case GapRepublish:
		return GapRepublish, nil
	default:
		return "", errors.Errorf("unknown gap policy %q, expected omit or republish", s)
	}
}

// Publisher writes one result per frame. It holds the last published pose and is not safe for
// concurrent use.
type Publisher struct {
	table  Table
	policy GapPolicy
	logger logging.Logger
	last   *triangulation.Pose
}

// NewPublisher returns a publisher writing to table.
func NewPublisher(table Table, policy GapPolicy, logger logging.Logger) *Publisher {
	if policy == "" {
		policy = GapOmit
	}
	return &Publisher{table: table, policy: policy, logger: logger}
}

// Last is the last pose published, nil before the first detection.
func (p *Publisher) Last() *triangulation.Pose {
	if p.last == nil {
		return nil
	}
	last := *p.last
	return &last
}

// Publish writes pose, or the gap policy's outcome when pose is nil. pair, if not nil, adds the
// primary target's box. Every key is attempted; the errors of failed writes are combined.
func (p *Publisher) Publish(ctx context.Context, pose *triangulation.Pose, pair *tape.TargetPair) error {
	var errs error
	putNumber := func(key string, v float64) {
		errs = multierr.Append(errs, p.table.PutNumber(ctx, key, v))
	}

	if pose != nil {
		putNumber(KeyAngle, pose.HeadingDegrees)
		putNumber(KeyDistance, pose.Distance)
		last := *pose
		p.last = &last
	} else if p.policy == GapRepublish && p.last != nil {
		putNumber(KeyAngle, p.last.HeadingDegrees)
		putNumber(KeyDistance, p.last.Distance)
	}
	errs = multierr.Append(errs, p.table.PutBoolean(ctx, KeyDetected, pose != nil))

	if pair != nil {
		box, _ := pair.Primary()
		putNumber(KeyX, float64(box.X))
		putNumber(KeyY, float64(box.Y))
		putNumber(KeyWidth, float64(box.Width))
		putNumber(KeyHeight, float64(box.Height))
	}
	return errs
}
