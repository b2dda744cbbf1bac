package render

import (
	"image"
	"image/color"

	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
	"gocv.io/x/gocv"
)

// TrailStyle defines the parameters used for rendering the trail style
type TrailStyle struct {
	// LineSame defines if the color of the trail line should be the
	// same color as the track.  If set to false then use the color specified
	// at LineColor
	LineSame      bool
	LineColor     color.RGBA
	LineThickness int
	// CircleSame defines if the color of the midpoint circle should be the
	// same color as the track.  If set to false then use the color specified
	// at CircleColor
	CircleSame   bool
	CircleColor  color.RGBA
	CircleRadius int
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineSame:      false,
		LineColor:     Yellow,
		LineThickness: 1,
		CircleSame:    true,
		CircleColor:   Pink,
		CircleRadius:  3,
	}
}

// Trail draws a vehicle's centroid history as connected line segments with
// a circle on the most recent point.  Fewer than three points are not drawn.
func Trail(img *gocv.Mat, points []detect.Centroid, clr color.RGBA, style TrailStyle) {

	if len(points) <= 2 {
		return
	}

	lineClr := clr
	circleClr := clr

	if !style.LineSame {
		lineClr = style.LineColor
	}

	if !style.CircleSame {
		circleClr = style.CircleColor
	}

	for i := 1; i < len(points); i++ {
		gocv.Line(img,
			image.Pt(points[i-1].X, points[i-1].Y),
			image.Pt(points[i].X, points[i].Y),
			lineClr, style.LineThickness,
		)
	}

	last := points[len(points)-1]
	gocv.Circle(img, image.Pt(last.X, last.Y), style.CircleRadius, circleClr, -1)
}
