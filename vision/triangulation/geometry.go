// Package triangulation turns the pixel geometry of a tape target pair into the robot's heading
// and distance to the midpoint between the targets.
package triangulation

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/tapevision/utils"
)

var (
	// ErrZeroHeight is returned for a target box with no height.
	ErrZeroHeight = errors.New("target height must be positive")
	// ErrDomain is returned when the target geometry has no real solution.
	ErrDomain = errors.New("target geometry outside solvable domain")
)

// Baseline is the fixed offset of the camera from the robot's reference point: D1 forward and
// D2 to the right, in the same unit as the tape dimensions.
type Baseline struct {
	D1 float64 `json:"d1"`
	D2 float64 `json:"d2"`
}

// D3 is the straight line distance from the reference point to the camera.
func (b Baseline) D3() float64 {
	return math.Hypot(b.D1, b.D2)
}

// Theta3 is the bearing of the camera seen from the reference point, in degrees.
func (b Baseline) Theta3() float64 {
	return utils.RadToDeg(math.Atan2(b.D2, b.D1))
}

// Theta7 is the complement of Theta3, in degrees.
func (b Baseline) Theta7() float64 {
	return 90 - b.Theta3()
}

// offset is the camera position relative to the reference point, x forward and y right.
func (b Baseline) offset() r2.Point {
	t3 := utils.DegToRad(b.Theta3())
	return r2.Point{X: math.Cos(t3), Y: math.Sin(t3)}.Mul(b.D3())
}

// Geometry holds the physical constants of the target and camera.
type Geometry struct {
	// TapeHeight is the physical height of one tape strip.
	TapeHeight float64
	// FocalLength is the focal length in pixels, i.e. how many pixels tall an object of unit
	// height appears at unit distance.
	FocalLength float64
	// TapeSeparation is the physical distance between the two strips' centres.
	TapeSeparation float64
	// FieldOfView is the horizontal field of view in degrees.
	FieldOfView float64
	Baseline    Baseline
}

// Pose is the solved position of the target midpoint relative to the robot.
type Pose struct {
	HeadingDegrees float64
	Distance       float64
}

func (p Pose) String() string {
	return fmt.Sprintf("heading %.1f deg distance %.1f", p.HeadingDegrees, p.Distance)
}

// Default constants for a 640 pixel wide camera with a 60 degree field of view and tape strips
// 5.5 units tall set 11 units apart.
const (
	DefaultTapeHeight     = 5.5
	DefaultTapeSeparation = 11.0
	DefaultFieldOfView    = 60.0
	DefaultFrameWidth     = 640
)

// FocalLengthFor derives the focal length in pixels of a pinhole camera from the frame width
// and horizontal field of view in degrees.
func FocalLengthFor(frameWidth int, fovDegrees float64) float64 {
	return float64(frameWidth) / 2 / math.Tan(utils.DegToRad(fovDegrees/2))
}

// DefaultGeometry returns the default constants with no camera offset.
func DefaultGeometry() Geometry {
	return Geometry{
		TapeHeight:     DefaultTapeHeight,
		FocalLength:    FocalLengthFor(DefaultFrameWidth, DefaultFieldOfView),
		TapeSeparation: DefaultTapeSeparation,
		FieldOfView:    DefaultFieldOfView,
	}
}

// Validate returns an error if a constant makes the geometry unsolvable.
func (g Geometry) Validate() error {
	switch {
	case !(g.TapeHeight > 0):
		return errors.Errorf("tape height must be positive, got %v", g.TapeHeight)
	case !(g.FocalLength > 0):
		return errors.Errorf("focal length must be positive, got %v", g.FocalLength)
	case !(g.TapeSeparation > 0):
		return errors.Errorf("tape separation must be positive, got %v", g.TapeSeparation)
	case !(g.FieldOfView > 0 && g.FieldOfView < 180):
		return errors.Errorf("field of view must be in (0, 180) degrees, got %v", g.FieldOfView)
	case !utils.IsFinite(g.Baseline.D1, g.Baseline.D2):
		return errors.New("baseline must be finite")
	}
	return nil
}

// HalfFOV is half the horizontal field of view in degrees.
func (g Geometry) HalfFOV() float64 {
	return g.FieldOfView / 2
}

// Translate maps value linearly from [srcMin, srcMax] onto [dstMin, dstMax]. Values outside the
// source range extrapolate. An empty source range maps everything to dstMin.
func Translate(value, srcMin, srcMax, dstMin, dstMax float64) float64 {
	if srcMax == srcMin {
		return dstMin
	}
	return dstMin + (value-srcMin)/(srcMax-srcMin)*(dstMax-dstMin)
}

// ApparentDistance is the pinhole estimate of the distance to a strip that appears heightPx
// pixels tall.
func (g Geometry) ApparentDistance(heightPx float64) (float64, error) {
	if math.IsNaN(heightPx) {
		return 0, ErrDomain
	}
	if heightPx <= 0 {
		return 0, ErrZeroHeight
	}
	d := g.TapeHeight * g.FocalLength / heightPx
	if !utils.IsFinite(d) {
		return 0, ErrDomain
	}
	return d, nil
}
