// Package plate locates license plates on a vehicle and reads them with a
// text recognition engine.
package plate

import (
	"fmt"
	"image"

	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
	clipper "github.com/ctessum/go.clipper"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// Detector finds plate shaped regions in a grayscale vehicle image
type Detector interface {
	DetectPlates(roi gocv.Mat) ([]detect.Box, error)
}

// Recognizer reads the text on a plate image
type Recognizer interface {
	Recognize(img gocv.Mat) (string, error)
}

// Params configures a Pipeline
type Params struct {
	// MinLength and MaxLength bound the accepted text length, both are
	// exclusive
	MinLength int
	MaxLength int
	// Padding expands each plate region by offsetting its outline, the
	// distance is area*Padding/perimeter.  Zero disables padding.
	Padding float64
}

// DefaultParams returns the length bounds used for typical plates
func DefaultParams() Params {
	return Params{
		MinLength: 2,
		MaxLength: 10,
	}
}

// Pipeline reads the plates of a vehicle
type Pipeline struct {
	detector   Detector
	recognizer Recognizer
	params     Params
	filter     LengthFilter
	stats      Stats
}

// NewPipeline returns a plate reading pipeline
func NewPipeline(d Detector, r Recognizer, p Params) *Pipeline {
	return &Pipeline{
		detector:   d,
		recognizer: r,
		params:     p,
		filter:     LengthFilter{Min: p.MinLength, Max: p.MaxLength},
	}
}

// Read finds and reads every plate on the vehicle.  The vehicle box is
// clamped to the frame to form the region of interest.  A detection error is
// returned, recognition failures are reported per candidate in its Result.
func (p *Pipeline) Read(gray gocv.Mat, vehicle detect.Box) ([]Candidate, error) {

	bounds := image.Rect(0, 0, gray.Cols(), gray.Rows())
	roiBox := vehicle.Clamp(bounds)

	if !roiBox.Valid() {
		return nil, nil
	}

	p.stats.Vehicles++

	roi := gray.Region(roiBox.Rect())
	defer roi.Close()

	boxes, err := p.detector.DetectPlates(roi)

	if err != nil {
		return nil, fmt.Errorf("error detecting plates: %w", err)
	}

	roiBounds := image.Rect(0, 0, roiBox.Width, roiBox.Height)
	res := make([]Candidate, 0, len(boxes))

	for _, b := range boxes {

		region := unclip(b, p.params.Padding).Clamp(roiBounds)

		if !region.Valid() {
			continue
		}

		c := Candidate{
			Region: region,
			Frame:  region.Offset(image.Pt(roiBox.X, roiBox.Y)),
			Result: p.recognize(roi, region),
		}

		p.stats.record(c.Result.Kind)

		log.Debug().Str("kind", c.Result.Kind.String()).
			Str("text", c.Result.Text).
			AnErr("error", c.Result.Err).
			Msg("Plate candidate read")

		res = append(res, c)
	}

	return res, nil
}

// recognize runs the recognizer on a region of the vehicle image
func (p *Pipeline) recognize(roi gocv.Mat, region detect.Box) Result {

	img := roi.Region(region.Rect())
	defer img.Close()

	text, err := p.recognizer.Recognize(img)

	return p.filter.Classify(text, err)
}

// Stats returns the outcome counters
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Accepted returns the candidates with plausible text
func Accepted(cands []Candidate) []Candidate {

	var res []Candidate

	for _, c := range cands {
		if c.Result.Kind == Accepted {
			res = append(res, c)
		}
	}

	return res
}

// unclip expands the box outline by area*ratio/perimeter and returns the
// bounding box of the expanded polygon
func unclip(b detect.Box, ratio float64) detect.Box {

	if ratio <= 0 || !b.Valid() {
		return b
	}

	w, h := float64(b.Width), float64(b.Height)
	distance := w * h * ratio / (2 * (w + h))

	x0, y0 := clipper.CInt(b.X), clipper.CInt(b.Y)
	x1, y1 := clipper.CInt(b.X+b.Width), clipper.CInt(b.Y+b.Height)

	path := clipper.Path{
		&clipper.IntPoint{X: x0, Y: y0},
		&clipper.IntPoint{X: x1, Y: y0},
		&clipper.IntPoint{X: x1, Y: y1},
		&clipper.IntPoint{X: x0, Y: y1},
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)

	solution := co.Execute(distance)

	var pts []image.Point

	for _, sol := range solution {
		for _, pt := range sol {
			pts = append(pts, image.Pt(int(pt.X), int(pt.Y)))
		}
	}

	if len(pts) == 0 {
		return b
	}

	r := image.Rectangle{Min: pts[0], Max: pts[0]}

	for _, pt := range pts[1:] {
		r.Min.X = min(r.Min.X, pt.X)
		r.Min.Y = min(r.Min.Y, pt.Y)
		r.Max.X = max(r.Max.X, pt.X)
		r.Max.Y = max(r.Max.Y, pt.Y)
	}

	return detect.BoxFromRect(r)
}
