package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
	"gocv.io/x/gocv"
)

// Vehicle is the annotation for one tracked vehicle
type Vehicle struct {
	// Box is the vehicle bounding box in frame coordinates
	Box detect.Box
	// TrackID is the tracker id, used to color the trail
	TrackID int
	// SpeedMPH is the displayed speed
	SpeedMPH float64
	// Speeding marks a vehicle over the speed limit
	Speeding bool
	// Plates are plate regions found on the vehicle in frame coordinates
	Plates []detect.Box
	// PlateText is the accepted plate reading, if any
	PlateText string
	// Trail is the centroid history of the vehicle, oldest first
	Trail []detect.Centroid
}

// Style defines how vehicles are annotated
type Style struct {
	Font Font
	// TTF when set is used for plate text instead of Font
	TTF *TTFont
	// LineThickness of bounding boxes
	LineThickness int
	// Normal is the box color of vehicles at or under the limit
	Normal color.RGBA
	// Speeding is the box color of vehicles over the limit
	Speeding color.RGBA
	// Plate is the box color of plate regions
	Plate color.RGBA
	// LabelOffset is the distance in pixels between the speed label
	// baseline and the top of the box
	LabelOffset int
	// ShowTrails draws the centroid history of each vehicle
	ShowTrails bool
	Trail      TrailStyle
	// ShowStatus draws a frame summary bar across the top of the image
	ShowStatus bool
}

// DefaultStyle returns green boxes for vehicles under the limit, red for
// speeding vehicles and blue plate boxes
func DefaultStyle() Style {
	return Style{
		Font:          DefaultFont(),
		LineThickness: 2,
		Normal:        Green,
		Speeding:      Red,
		Plate:         Blue,
		LabelOffset:   10,
		ShowTrails:    true,
		Trail:         DefaultTrailStyle(),
	}
}

// Vehicles draws the bounding box, speed label, plate boxes and trail of
// each vehicle
func Vehicles(img *gocv.Mat, vehicles []Vehicle, style Style) {

	for _, v := range vehicles {

		clr := style.Normal

		if v.Speeding {
			clr = style.Speeding
		}

		if style.ShowTrails {
			Trail(img, v.Trail, trackColor(v.TrackID), style.Trail)
		}

		for _, p := range v.Plates {
			gocv.Rectangle(img, p.Rect(), style.Plate, style.LineThickness)
		}

		gocv.Rectangle(img, v.Box.Rect(), clr, style.LineThickness)

		text := fmt.Sprintf("%.1f MPH", v.SpeedMPH)
		x, y := style.Font.labelOrigin(text, v.Box.X, v.Box.X+v.Box.Width, v.Box.Y, style.LabelOffset)
		style.Font.put(img, text, x, y, clr)

		if v.PlateText != "" {
			plateText(img, v, clr, style)
		}
	}
}

// plateText writes the plate reading under the vehicle box
func plateText(img *gocv.Mat, v Vehicle, clr color.RGBA, style Style) {

	size := gocv.GetTextSize(v.PlateText, style.Font.Face, style.Font.Scale, style.Font.Thickness)
	x := v.Box.X
	y := v.Box.Y + v.Box.Height + size.Y + style.LabelOffset

	if style.TTF != nil {
		// text with glyphs missing from the font falls back to the Hershey font
		if err := style.TTF.Draw(img, v.PlateText, x, y, clr); err == nil {
			return
		}
	}

	style.Font.put(img, v.PlateText, x, y, clr)
}

// Status draws a black bar across the top of the image with a line of text
func Status(img *gocv.Mat, text string, font Font, clr color.RGBA) {

	size := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)
	height := size.Y + 12

	gocv.Rectangle(img, image.Rect(0, 0, img.Cols(), height), Black, -1)
	font.put(img, text, 4, size.Y+6, clr)
}
