package detect

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestScaler(t *testing.T) {

	tests := []struct {
		srcWidth     int
		srcHeight    int
		factor       float64
		expectedSize image.Point
		box          Box
		expectedBox  Box
	}{
		{1280, 720, 0.5, image.Pt(640, 360), Box{50, 60, 30, 20}, Box{100, 120, 60, 40}},
		{1920, 1080, 0.25, image.Pt(480, 270), Box{10, 10, 10, 10}, Box{40, 40, 40, 40}},
		{640, 480, 1, image.Pt(640, 480), Box{1, 2, 3, 4}, Box{1, 2, 3, 4}},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC1)
		resized := gocv.NewMat()

		s := NewScaler(tc.srcWidth, tc.srcHeight, tc.factor)
		s.Resize(img, &resized)

		assert.Equal(t, tc.expectedSize, s.DestSize())
		assert.Equal(t, tc.expectedSize.X, resized.Cols())
		assert.Equal(t, tc.expectedSize.Y, resized.Rows())
		assert.Equal(t, tc.expectedBox, s.ToSource(tc.box))

		img.Close()
		resized.Close()
	}
}
