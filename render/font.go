package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Alignment of a text label relative to its bounding box
type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Thickness int
	LineType  gocv.LineType
	// Alignment of the text label to the bounding box
	Alignment Alignment
}

// DefaultFont returns the font used for speed labels
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.7,
		Thickness: 2,
		LineType:  gocv.LineAA,
		Alignment: Left,
	}
}

// labelOrigin returns the baseline origin of text placed offset pixels above
// the top edge of the span [left, right]
func (f Font) labelOrigin(text string, left, right, top, offset int) (int, int) {

	size := gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)

	x := left

	switch f.Alignment {
	case Center:
		x = (left+right)/2 - size.X/2
	case Right:
		x = right - size.X
	}

	return x, top - offset
}

// put draws text with the Hershey font
func (f Font) put(img *gocv.Mat, text string, x, y int, clr color.RGBA) {
	gocv.PutTextWithParams(img, text, image.Pt(x, y), f.Face, f.Scale, clr,
		f.Thickness, f.LineType, false)
}
