package detect

import (
	"image"

	"gocv.io/x/gocv"
)

// Scaler handles downsizing frames before detection and mapping the
// resulting boxes back to source frame coordinates
type Scaler struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the width to scale to
	destWidth int
	// destHeight is the height to scale to
	destHeight int
	// scaleX and scaleY are the source to destination ratios after integer
	// rounding of the destination size
	scaleX float64
	scaleY float64
}

// NewScaler returns a scaler that resizes a srcWidth x srcHeight image by
// the given factor
func NewScaler(srcWidth, srcHeight int, factor float64) *Scaler {

	s := &Scaler{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  max(1, int(float64(srcWidth)*factor)),
		destHeight: max(1, int(float64(srcHeight)*factor)),
	}

	s.scaleX = float64(s.srcWidth) / float64(s.destWidth)
	s.scaleY = float64(s.srcHeight) / float64(s.destHeight)

	return s
}

// Resize scales src into dest
func (s *Scaler) Resize(src gocv.Mat, dest *gocv.Mat) {
	gocv.Resize(src, dest, image.Pt(s.destWidth, s.destHeight), 0, 0,
		gocv.InterpolationArea)
}

// ToSource maps a box in scaled coordinates back to the source image
func (s *Scaler) ToSource(b Box) Box {
	return Box{
		X:      int(float64(b.X) * s.scaleX),
		Y:      int(float64(b.Y) * s.scaleY),
		Width:  int(float64(b.Width) * s.scaleX),
		Height: int(float64(b.Height) * s.scaleY),
	}
}

// DestSize returns the scaled image dimensions
func (s *Scaler) DestSize() image.Point {
	return image.Pt(s.destWidth, s.destHeight)
}

// SrcWidth returns the width of the source image
func (s *Scaler) SrcWidth() int {
	return s.srcWidth
}

// SrcHeight returns the height of the source image
func (s *Scaler) SrcHeight() int {
	return s.srcHeight
}
