package telemetry

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/tapevision/logging"
	"go.viam.com/tapevision/vision/tape"
	"go.viam.com/tapevision/vision/triangulation"
)

func TestParseGapPolicy(t *testing.T) {
	for in, want := range map[string]GapPolicy{"": GapOmit, "omit": GapOmit, " Republish ": GapRepublish} {
		got, err := ParseGapPolicy(in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, want)
	}
	_, err := ParseGapPolicy("hold")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "hold")
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	pose := &triangulation.Pose{HeadingDegrees: 4.5, Distance: 38}
	pair := &tape.TargetPair{
		Left:  tape.BoundingBox{X: 200, Y: 40, Width: 10, Height: 60},
		Right: tape.BoundingBox{X: 400, Y: 35, Width: 12, Height: 70},
	}

	t.Run("omit", func(t *testing.T) {
		mt := NewMemoryTable()
		p := NewPublisher(mt, "", logging.NewTestLogger(t))
		test.That(t, p.Last(), test.ShouldBeNil)

		test.That(t, p.Publish(ctx, pose, pair), test.ShouldBeNil)
		angle, _ := mt.Number(KeyAngle)
		test.That(t, angle, test.ShouldEqual, 4.5)
		detected, _ := mt.Boolean(KeyDetected)
		test.That(t, detected, test.ShouldBeTrue)
		// primary target is the taller right one
		x, _ := mt.Number(KeyX)
		test.That(t, x, test.ShouldEqual, 400.0)
		h, _ := mt.Number(KeyHeight)
		test.That(t, h, test.ShouldEqual, 70.0)
		test.That(t, mt.Keys(), test.ShouldResemble, []string{"angle", "detected", "distance", "h", "w", "x", "y"})
		test.That(t, *p.Last(), test.ShouldResemble, *pose)

		writes := mt.Writes()
		test.That(t, p.Publish(ctx, nil, nil), test.ShouldBeNil)
		test.That(t, mt.Writes(), test.ShouldEqual, writes+1)
		detected, _ = mt.Boolean(KeyDetected)
		test.That(t, detected, test.ShouldBeFalse)
	})

	t.Run("republish", func(t *testing.T) {
		mt := NewMemoryTable()
		p := NewPublisher(mt, GapRepublish, logging.NewTestLogger(t))

		// nothing to republish yet
		test.That(t, p.Publish(ctx, nil, nil), test.ShouldBeNil)
		test.That(t, mt.Keys(), test.ShouldResemble, []string{"detected"})

		test.That(t, p.Publish(ctx, pose, nil), test.ShouldBeNil)
		test.That(t, mt.PutNumber(ctx, KeyAngle, -99), test.ShouldBeNil)
		test.That(t, p.Publish(ctx, nil, nil), test.ShouldBeNil)
		angle, _ := mt.Number(KeyAngle)
		test.That(t, angle, test.ShouldEqual, 4.5)
		distance, _ := mt.Number(KeyDistance)
		test.That(t, distance, test.ShouldEqual, 38.0)
		detected, _ := mt.Boolean(KeyDetected)
		test.That(t, detected, test.ShouldBeFalse)
	})

	t.Run("write errors", func(t *testing.T) {
		mt := NewMemoryTable()
		mt.PutErr = errors.New("gone")
		p := NewPublisher(mt, GapOmit, logging.NewTestLogger(t))
		err := p.Publish(ctx, pose, pair)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "gone")
		// the pose is still remembered
		test.That(t, p.Last(), test.ShouldNotBeNil)
	})
}
