package plate

import (
	"errors"
	"testing"

	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fakeDetector struct {
	boxes []detect.Box
	err   error
	// sizes records the width and height of each region searched
	sizes [][2]int
}

func (f *fakeDetector) DetectPlates(roi gocv.Mat) ([]detect.Box, error) {
	f.sizes = append(f.sizes, [2]int{roi.Cols(), roi.Rows()})
	return f.boxes, f.err
}

type reading struct {
	text string
	err  error
}

type fakeRecognizer struct {
	readings []reading
	calls    int
}

func (f *fakeRecognizer) Recognize(img gocv.Mat) (string, error) {
	r := f.readings[f.calls%len(f.readings)]
	f.calls++
	return r.text, r.err
}

func TestLengthFilter(t *testing.T) {

	filter := LengthFilter{Min: 2, Max: 10}
	engineErr := errors.New("tesseract failed")

	tests := []struct {
		raw  string
		err  error
		kind ResultKind
		text string
	}{
		{"ABC123", nil, Accepted, "ABC123"},
		{"  AB1 \n", nil, Accepted, "AB1"},
		{"ABCDEFGHI", nil, Accepted, "ABCDEFGHI"},
		{"A", nil, ImplausibleLength, "A"},
		{"AB", nil, ImplausibleLength, "AB"},
		{"ABCDEFGHIJ", nil, ImplausibleLength, "ABCDEFGHIJ"},
		{"ABCDEFGHIJKL", nil, ImplausibleLength, "ABCDEFGHIJKL"},
		{"  \n\t", nil, Empty, ""},
		{"", nil, Empty, ""},
		{"ignored", engineErr, EngineError, ""},
		// length counts characters not bytes
		{"АВСЕКМ123", nil, Accepted, "АВСЕКМ123"},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			res := filter.Classify(tc.raw, tc.err)
			assert.Equal(t, tc.kind, res.Kind)
			assert.Equal(t, tc.text, res.Text)

			if tc.err != nil {
				assert.ErrorIs(t, res.Err, tc.err)
			}
		})
	}
}

func TestPipelineRead(t *testing.T) {

	gray := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8U)
	defer gray.Close()

	det := &fakeDetector{boxes: []detect.Box{
		{X: 10, Y: 20, Width: 30, Height: 10},
		{X: 5, Y: 5, Width: 20, Height: 8},
		{X: 40, Y: 30, Width: 10, Height: 5},
		{X: 0, Y: 0, Width: 10, Height: 4},
	}}

	rec := &fakeRecognizer{readings: []reading{
		{"ABC123", nil},
		{"X", nil},
		{"", errors.New("engine failure")},
		{" ", nil},
	}}

	p := NewPipeline(det, rec, DefaultParams())

	cands, err := p.Read(gray, detect.Box{X: 100, Y: 100, Width: 60, Height: 40})
	require.NoError(t, err)
	require.Len(t, cands, 4)

	assert.Equal(t, [][2]int{{60, 40}}, det.sizes)

	assert.Equal(t, Accepted, cands[0].Result.Kind)
	assert.Equal(t, "ABC123", cands[0].Result.Text)
	assert.Equal(t, detect.Box{X: 110, Y: 120, Width: 30, Height: 10}, cands[0].Frame)
	assert.Equal(t, ImplausibleLength, cands[1].Result.Kind)
	assert.Equal(t, EngineError, cands[2].Result.Kind)
	assert.Error(t, cands[2].Result.Err)
	assert.Equal(t, Empty, cands[3].Result.Kind)

	accepted := Accepted(cands)
	require.Len(t, accepted, 1)
	assert.Equal(t, "ABC123", accepted[0].Result.Text)

	assert.Equal(t, Stats{
		Vehicles:          1,
		Candidates:        4,
		Accepted:          1,
		EngineErrors:      1,
		Empty:             1,
		ImplausibleLength: 1,
	}, p.Stats())
}

func TestPipelineEveryAcceptedCandidateReturned(t *testing.T) {

	gray := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8U)
	defer gray.Close()

	det := &fakeDetector{boxes: []detect.Box{
		{X: 0, Y: 0, Width: 20, Height: 8},
		{X: 20, Y: 10, Width: 20, Height: 8},
	}}
	rec := &fakeRecognizer{readings: []reading{{"ABC123", nil}}}

	p := NewPipeline(det, rec, DefaultParams())

	cands, err := p.Read(gray, detect.Box{X: 0, Y: 0, Width: 60, Height: 40})
	require.NoError(t, err)

	// identical text from the same vehicle is not deduplicated
	assert.Len(t, Accepted(cands), 2)
}

func TestPipelineClampsRegion(t *testing.T) {

	gray := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8U)
	defer gray.Close()

	det := &fakeDetector{boxes: []detect.Box{
		// partly outside the clamped region
		{X: 30, Y: 20, Width: 30, Height: 10},
	}}
	rec := &fakeRecognizer{readings: []reading{{"ABC123", nil}}}

	p := NewPipeline(det, rec, DefaultParams())

	cands, err := p.Read(gray, detect.Box{X: 600, Y: 450, Width: 60, Height: 40})
	require.NoError(t, err)

	// vehicle region clamped to 40x30
	assert.Equal(t, [][2]int{{40, 30}}, det.sizes)

	require.Len(t, cands, 1)
	assert.Equal(t, detect.Box{X: 30, Y: 20, Width: 10, Height: 10}, cands[0].Region)
	assert.Equal(t, detect.Box{X: 630, Y: 470, Width: 10, Height: 10}, cands[0].Frame)
}

func TestPipelineVehicleOutsideFrame(t *testing.T) {

	gray := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8U)
	defer gray.Close()

	det := &fakeDetector{}
	p := NewPipeline(det, &fakeRecognizer{}, DefaultParams())

	cands, err := p.Read(gray, detect.Box{X: 700, Y: 10, Width: 60, Height: 40})
	require.NoError(t, err)
	assert.Empty(t, cands)
	assert.Empty(t, det.sizes)
	assert.Equal(t, 0, p.Stats().Vehicles)
}

func TestPipelineDetectError(t *testing.T) {

	gray := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8U)
	defer gray.Close()

	det := &fakeDetector{err: detect.ErrInvalidInput}
	p := NewPipeline(det, &fakeRecognizer{}, DefaultParams())

	_, err := p.Read(gray, detect.Box{X: 10, Y: 10, Width: 60, Height: 40})
	assert.ErrorIs(t, err, detect.ErrInvalidInput)
}

func TestUnclip(t *testing.T) {

	b := detect.Box{X: 10, Y: 10, Width: 100, Height: 20}

	assert.Equal(t, b, unclip(b, 0))

	// distance = 100*20*2.4 / 240 = 20
	res := unclip(b, 2.4)

	assert.InDelta(t, -10, res.X, 1)
	assert.InDelta(t, -10, res.Y, 1)
	assert.InDelta(t, 140, res.Width, 2)
	assert.InDelta(t, 60, res.Height, 2)
}

func TestResultKindString(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "engine_error", EngineError.String())
	assert.Equal(t, "empty", Empty.String())
	assert.Equal(t, "implausible_length", ImplausibleLength.String())
}
