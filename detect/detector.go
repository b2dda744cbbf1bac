package detect

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrInvalidInput is returned when a detector is given an empty or non
// grayscale image
var ErrInvalidInput = errors.New("invalid input image")

// Detector defines the object detection capability used by the pipeline.
// Returned boxes have no guaranteed order and false positives and negatives
// are expected.
type Detector interface {
	// DetectVehicles finds vehicles in a grayscale frame
	DetectVehicles(gray gocv.Mat) ([]Box, error)
	// DetectPlates finds license plate shapes in a grayscale region of
	// interest.  Boxes are relative to the region.
	DetectPlates(roi gocv.Mat) ([]Box, error)
}

// CascadeParams defines the multi scale detection parameters for a cascade
// classifier pass
type CascadeParams struct {
	// ScaleFactor is how much the image size is reduced at each image scale
	ScaleFactor float64
	// MinNeighbors is how many neighbours each candidate rectangle should
	// have to retain it
	MinNeighbors int
	// MinSize is the minimum object size, objects smaller are ignored
	MinSize image.Point
}

// CascadeOptions configures a Cascade detector
type CascadeOptions struct {
	Vehicle CascadeParams
	Plate   CascadeParams
	// Scale downsizes frames before the vehicle pass, a value of 1 runs
	// detection at full resolution
	Scale float64
}

// DefaultCascadeOptions returns the parameters the bundled cascade models
// were tuned with
func DefaultCascadeOptions() CascadeOptions {
	return CascadeOptions{
		Vehicle: CascadeParams{ScaleFactor: 1.1, MinNeighbors: 5},
		Plate:   CascadeParams{ScaleFactor: 1.2, MinNeighbors: 5},
		Scale:   1,
	}
}

// Cascade is a Detector using two Haar cascade classifiers, one trained on
// vehicle shapes and the other on license plates
type Cascade struct {
	vehicles gocv.CascadeClassifier
	plates   gocv.CascadeClassifier
	opts     CascadeOptions
	scaler   *Scaler
}

// NewCascade loads the vehicle and plate cascade model files.  An error is
// returned if either model is missing or can not be parsed.
func NewCascade(vehicleModel, plateModel string, opts CascadeOptions) (*Cascade, error) {

	c := &Cascade{
		vehicles: gocv.NewCascadeClassifier(),
		plates:   gocv.NewCascadeClassifier(),
		opts:     opts,
	}

	if !c.vehicles.Load(vehicleModel) {
		c.Close()
		return nil, fmt.Errorf("error loading vehicle cascade model %s", vehicleModel)
	}

	if !c.plates.Load(plateModel) {
		c.Close()
		return nil, fmt.Errorf("error loading plate cascade model %s", plateModel)
	}

	if opts.Scale <= 0 || opts.Scale > 1 {
		c.opts.Scale = 1
	}

	return c, nil
}

// DetectVehicles runs the vehicle cascade on a grayscale frame
func (c *Cascade) DetectVehicles(gray gocv.Mat) ([]Box, error) {

	if err := checkGray(gray); err != nil {
		return nil, err
	}

	if c.opts.Scale == 1 {
		return c.detect(&c.vehicles, gray, c.opts.Vehicle), nil
	}

	// frame sizes are fixed for a stream so the scaler is created once on
	// first use and recreated only if the resolution changes
	if c.scaler == nil || c.scaler.SrcWidth() != gray.Cols() || c.scaler.SrcHeight() != gray.Rows() {
		c.scaler = NewScaler(gray.Cols(), gray.Rows(), c.opts.Scale)
	}

	small := gocv.NewMat()
	defer small.Close()

	c.scaler.Resize(gray, &small)

	boxes := c.detect(&c.vehicles, small, c.opts.Vehicle)

	for i := range boxes {
		boxes[i] = c.scaler.ToSource(boxes[i])
	}

	return Sanitize(boxes), nil
}

// DetectPlates runs the plate cascade on a grayscale vehicle region
func (c *Cascade) DetectPlates(roi gocv.Mat) ([]Box, error) {

	if err := checkGray(roi); err != nil {
		return nil, err
	}

	return c.detect(&c.plates, roi, c.opts.Plate), nil
}

// detect runs a multi scale detection pass of the classifier on img
func (c *Cascade) detect(cc *gocv.CascadeClassifier, img gocv.Mat, p CascadeParams) []Box {

	rects := cc.DetectMultiScaleWithParams(img, p.ScaleFactor, p.MinNeighbors,
		0, p.MinSize, image.Pt(0, 0))

	boxes := make([]Box, 0, len(rects))

	for _, r := range rects {
		boxes = append(boxes, BoxFromRect(r))
	}

	return Sanitize(boxes)
}

// Close releases the classifiers
func (c *Cascade) Close() error {

	return errors.Join(c.vehicles.Close(), c.plates.Close())
}

// checkGray validates img is a non empty single channel image
func checkGray(img gocv.Mat) error {

	if img.Empty() {
		return fmt.Errorf("%w: image is empty", ErrInvalidInput)
	}

	if img.Channels() != 1 {
		return fmt.Errorf("%w: expected 1 channel, got %d", ErrInvalidInput, img.Channels())
	}

	return nil
}
