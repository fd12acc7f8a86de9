package triangulation

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/tapevision/utils"
	"go.viam.com/tapevision/vision/tape"
)

// Solve computes the pose of the midpoint between the two targets of pair in a frame
// frameWidth pixels wide.
//
// The taller target is the primary one (the left one on a tie). Its apparent distance d4, the
// secondary's d6 and the known separation d2 form a triangle; the law of cosines gives the
// angle theta1 at the primary, which in turn gives the camera to midpoint distance, and the law
// of sines the angle theta2 between the primary and the midpoint as seen from the camera.
// theta2 is added to the primary's bearing theta4 towards the secondary's side. Finally the
// camera offset moves the result to the robot's reference point.
func (g Geometry) Solve(pair tape.TargetPair, frameWidth int) (Pose, error) {
	if frameWidth <= 0 {
		return Pose{}, errors.Wrapf(ErrDomain, "frame width %d", frameWidth)
	}
	primary, primaryIsLeft := pair.Primary()
	secondary := pair.Secondary()

	d4, err := g.ApparentDistance(float64(primary.Height))
	if err != nil {
		return Pose{}, err
	}
	d6, err := g.ApparentDistance(float64(secondary.Height))
	if err != nil {
		return Pose{}, err
	}
	theta4 := Translate(primary.CenterX(), 0, float64(frameWidth), -g.HalfFOV(), g.HalfFOV())

	d2 := g.TapeSeparation
	theta1 := math.Acos(utils.Clamp((d4*d4+d2*d2-d6*d6)/(2*d4*d2), -1, 1))

	half := d2 / 2
	dmSq := d4*d4 + half*half - 2*d4*half*math.Cos(theta1)
	if !(dmSq > 0) {
		return Pose{}, errors.Wrap(ErrDomain, "midpoint coincides with camera")
	}
	dm := math.Sqrt(dmSq)

	theta2 := math.Asin(utils.Clamp(half*math.Sin(theta1)/dm, -1, 1))
	if d4*d4+dmSq < half*half {
		// the angle at the camera is obtuse; asin only returns the acute one.
		theta2 = math.Pi - theta2
	}

	theta5 := theta4 - utils.RadToDeg(theta2)
	if primaryIsLeft {
		theta5 = theta4 + utils.RadToDeg(theta2)
	}

	h := utils.DegToRad(theta5)
	mid := g.Baseline.offset().Add(r2.Point{X: math.Cos(h), Y: math.Sin(h)}.Mul(dm))
	pose := Pose{
		HeadingDegrees: utils.RadToDeg(math.Atan2(mid.Y, mid.X)),
		Distance:       mid.Norm(),
	}
	if !utils.IsFinite(theta1, theta2, theta5, pose.HeadingDegrees, pose.Distance) {
		return Pose{}, ErrDomain
	}
	pose.HeadingDegrees = utils.Clamp(pose.HeadingDegrees, -g.HalfFOV(), g.HalfFOV())
	return pose, nil
}
