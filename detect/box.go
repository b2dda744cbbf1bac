package detect

import (
	"image"
)

// Box is the axis aligned bounding box of a detected object in pixel
// coordinates
type Box struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Centroid is the integer pixel center point of a Box
type Centroid struct {
	X, Y int
}

// BoxFromRect converts an image.Rectangle into a Box
func BoxFromRect(r image.Rectangle) Box {
	return Box{
		X:      r.Min.X,
		Y:      r.Min.Y,
		Width:  r.Dx(),
		Height: r.Dy(),
	}
}

// Valid reports if the box has a positive area
func (b Box) Valid() bool {
	return b.Width > 0 && b.Height > 0
}

// Centroid returns the geometric center of the box, truncated to whole
// pixels
func (b Box) Centroid() Centroid {
	return Centroid{
		X: int(float64(b.X) + float64(b.Width)/2),
		Y: int(float64(b.Y) + float64(b.Height)/2),
	}
}

// Rect returns the box as an image.Rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Offset returns the box translated by the given origin, used to map a box
// found inside a region of interest back into frame coordinates
func (b Box) Offset(origin image.Point) Box {
	b.X += origin.X
	b.Y += origin.Y
	return b
}

// Clamp returns the intersection of the box with the given bounds
func (b Box) Clamp(bounds image.Rectangle) Box {
	return BoxFromRect(b.Rect().Intersect(bounds))
}

// Sanitize drops boxes that do not have a positive area
func Sanitize(boxes []Box) []Box {

	res := boxes[:0]

	for _, b := range boxes {
		if b.Valid() {
			res = append(res, b)
		}
	}

	return res
}
