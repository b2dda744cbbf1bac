// Package speed converts a vehicle's frame to frame pixel displacement into a
// real world speed using the apparent width of the vehicle as the scale
// reference.
package speed

import (
	"errors"
	"fmt"

	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
	"gonum.org/v1/gonum/floats"
)

// ErrInvalidState is returned when an estimate can not be computed from the
// given inputs, such as a zero width bounding box
var ErrInvalidState = errors.New("invalid speed estimation state")

// FeetPerSecondToMPH is the conversion factor from feet per second to miles
// per hour
const FeetPerSecondToMPH = 0.681818

// Estimate is the speed computed for one vehicle observation
type Estimate struct {
	// Displacement is the euclidean distance in pixels between the previous
	// and current centroid
	Displacement float64
	// PixelsPerUnit is the image scale derived from the bounding box width
	PixelsPerUnit float64
	// Frames is the number of frames the displacement occurred over
	Frames int
	// MPH is the estimated speed
	MPH float64
}

// Estimator calculates speed from centroid displacement
type Estimator struct {
	// RealWidth is the assumed physical width of a vehicle
	RealWidth float64
	// FrameRate is the nominal capture rate in frames per second
	FrameRate float64
	// UnitConversion converts width units per second into the reported unit
	UnitConversion float64
}

// NewEstimator returns an Estimator after validating its parameters
func NewEstimator(realWidth, frameRate, unitConversion float64) (*Estimator, error) {

	if realWidth <= 0 || frameRate <= 0 || unitConversion <= 0 {
		return nil, fmt.Errorf("%w: width %v, frame rate %v and unit conversion %v must be positive",
			ErrInvalidState, realWidth, frameRate, unitConversion)
	}

	return &Estimator{
		RealWidth:      realWidth,
		FrameRate:      frameRate,
		UnitConversion: unitConversion,
	}, nil
}

// Estimate returns the speed of a vehicle that moved from prev to cur over
// the given number of frames.  The bounding box width in pixels sets the
// scale, so width pixels span RealWidth units.  A frames value below 1 is
// treated as consecutive frames.
func (e *Estimator) Estimate(cur, prev detect.Centroid, width int, frames int) (Estimate, error) {

	if width <= 0 {
		return Estimate{}, fmt.Errorf("%w: bounding box width %d", ErrInvalidState, width)
	}

	if e.RealWidth <= 0 || e.FrameRate <= 0 {
		return Estimate{}, fmt.Errorf("%w: width %v and frame rate %v must be positive",
			ErrInvalidState, e.RealWidth, e.FrameRate)
	}

	if frames < 1 {
		frames = 1
	}

	res := Estimate{
		Displacement: floats.Distance(
			[]float64{float64(cur.X), float64(cur.Y)},
			[]float64{float64(prev.X), float64(prev.Y)},
			2,
		),
		PixelsPerUnit: float64(width) / e.RealWidth,
		Frames:        frames,
	}

	unitsPerFrame := res.Displacement / res.PixelsPerUnit
	res.MPH = unitsPerFrame * (e.FrameRate / float64(frames)) * e.UnitConversion

	return res, nil
}
