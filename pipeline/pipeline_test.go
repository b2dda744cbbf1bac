package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	speeddetect "github.com/JuneshG/Vehicle-Speed-Detection-System"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/eventlog"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/plate"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// fakeDetector returns one preset list of vehicle boxes per call
type fakeDetector struct {
	frames     [][]detect.Box
	calls      int
	plates     []detect.Box
	plateCalls int
	err        error
}

func (f *fakeDetector) DetectVehicles(gray gocv.Mat) ([]detect.Box, error) {

	if f.err != nil {
		return nil, f.err
	}

	if f.calls >= len(f.frames) {
		return nil, nil
	}

	boxes := append([]detect.Box(nil), f.frames[f.calls]...)
	f.calls++

	return boxes, nil
}

func (f *fakeDetector) DetectPlates(roi gocv.Mat) ([]detect.Box, error) {
	f.plateCalls++
	return f.plates, nil
}

type fakeRecognizer struct {
	text  string
	calls int
}

func (f *fakeRecognizer) Recognize(img gocv.Mat) (string, error) {
	f.calls++
	return f.text, nil
}

type memStore struct {
	entries []eventlog.Entry
	err     error
}

func (m *memStore) Append(ctx context.Context, e eventlog.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) Close() error { return nil }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type quitDisplay struct {
	shown  int
	quitOn int
}

func (d *quitDisplay) Show(gocv.Mat) error { d.shown++; return nil }
func (d *quitDisplay) Quit() bool          { return d.quitOn > 0 && d.shown >= d.quitOn }
func (d *quitDisplay) Close() error        { return nil }

type harness struct {
	pipe  *Pipeline
	det   *fakeDetector
	rec   *fakeRecognizer
	store *memStore
	clock *fakeClock
	src   *source.Buffer
}

func newHarness(t *testing.T, cfg speeddetect.Config, frames [][]detect.Box) *harness {

	mats := make([]gocv.Mat, len(frames))

	for i := range mats {
		mats[i] = gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	}

	h := &harness{
		det: &fakeDetector{
			frames: frames,
			plates: []detect.Box{{X: 10, Y: 20, Width: 30, Height: 10}},
		},
		rec:   &fakeRecognizer{text: "ABC123"},
		store: &memStore{},
		clock: &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)},
		src:   source.NewBuffer(mats),
	}

	pipe, err := New(cfg, Deps{
		Source:     h.src,
		Detector:   h.det,
		Recognizer: h.rec,
		Store:      h.store,
		Clock:      h.clock,
	})
	require.NoError(t, err)

	h.pipe = pipe

	t.Cleanup(func() {
		pipe.Close()
		h.src.Close()
	})

	return h
}

// process runs every buffered frame through ProcessFrame
func (h *harness) process(t *testing.T) []FrameResult {

	frame := gocv.NewMat()
	defer frame.Close()

	var res []FrameResult

	for h.src.Read(&frame) == nil {
		fr, err := h.pipe.ProcessFrame(context.Background(), &frame)
		require.NoError(t, err)
		res = append(res, fr)
	}

	return res
}

func TestEndToEndSpeedingVehicle(t *testing.T) {

	h := newHarness(t, speeddetect.DefaultConfig(), [][]detect.Box{
		{{X: 100, Y: 100, Width: 60, Height: 40}},
		{{X: 130, Y: 100, Width: 60, Height: 40}},
	})

	res := h.process(t)
	require.Len(t, res, 2)

	// first sighting has no previous position
	first := res[0].Vehicles[0]
	assert.False(t, first.Matched)
	assert.Equal(t, 0.0, first.SpeedMPH)
	assert.False(t, first.OverLimit)
	assert.Empty(t, first.Plates)

	second := res[1].Vehicles[0]
	assert.True(t, second.Matched)
	assert.InDelta(t, 30.0, second.Estimate.Displacement, 1e-9)
	assert.InDelta(t, 61.36, second.SpeedMPH, 0.01)
	assert.True(t, second.OverLimit)
	assert.Equal(t, first.TrackID, second.TrackID)

	require.Len(t, second.Plates, 1)
	assert.Equal(t, plate.Accepted, second.Plates[0].Result.Kind)
	assert.Equal(t, []eventlog.Decision{eventlog.Logged}, second.Decisions)
	assert.Equal(t, 1, res[1].Logged)

	// the plate pipeline only ran for the speeding vehicle
	assert.Equal(t, 1, h.det.plateCalls)
	assert.Equal(t, 1, h.rec.calls)

	require.Len(t, h.store.entries, 1)
	assert.Equal(t, "ABC123", h.store.entries[0].Plate)
	assert.InDelta(t, 61.36, h.store.entries[0].SpeedMPH, 0.01)

	stats := h.pipe.Stats()
	assert.Equal(t, 2, stats.Frames)
	assert.Equal(t, 1, stats.OverLimit)
	assert.Equal(t, 1, stats.Logged)
	assert.Equal(t, 1, stats.Plates.Accepted)
}

func TestSpeedAtLimitNotLogged(t *testing.T) {

	cfg := speeddetect.DefaultConfig()
	cfg.UnitConversion = 1
	cfg.SpeedLimit = 60

	// 20px at 10px/ft over one frame at 30fps is exactly 60
	h := newHarness(t, cfg, [][]detect.Box{
		{{X: 100, Y: 100, Width: 60, Height: 40}},
		{{X: 120, Y: 100, Width: 60, Height: 40}},
	})

	res := h.process(t)

	v := res[1].Vehicles[0]
	assert.InDelta(t, 60.0, v.SpeedMPH, 1e-9)
	assert.False(t, v.OverLimit)
	assert.Equal(t, 0, h.det.plateCalls)
	assert.Empty(t, h.store.entries)
}

func TestSpeedAboveLimitLogged(t *testing.T) {

	cfg := speeddetect.DefaultConfig()
	cfg.UnitConversion = 1
	cfg.SpeedLimit = 59

	h := newHarness(t, cfg, [][]detect.Box{
		{{X: 100, Y: 100, Width: 60, Height: 40}},
		{{X: 120, Y: 100, Width: 60, Height: 40}},
	})

	res := h.process(t)

	v := res[1].Vehicles[0]
	assert.InDelta(t, 60.0, v.SpeedMPH, 1e-9)
	assert.True(t, v.OverLimit)
	assert.Equal(t, 1, h.det.plateCalls)
	assert.Len(t, h.store.entries, 1)
}

func TestCooldownSuppressesRepeatEvents(t *testing.T) {

	h := newHarness(t, speeddetect.DefaultConfig(), [][]detect.Box{
		{{X: 100, Y: 100, Width: 60, Height: 40}},
		{{X: 130, Y: 100, Width: 60, Height: 40}},
		{{X: 160, Y: 100, Width: 60, Height: 40}},
	})

	res := h.process(t)

	assert.Equal(t, 1, res[1].Logged)
	assert.Equal(t, 0, res[2].Logged)
	assert.Equal(t, 1, res[2].Suppressed)
	assert.Len(t, h.store.entries, 1)
	assert.Equal(t, 1, h.pipe.Stats().Suppressed)
}

func TestLogFailureContinues(t *testing.T) {

	h := newHarness(t, speeddetect.DefaultConfig(), [][]detect.Box{
		{{X: 100, Y: 100, Width: 60, Height: 40}},
		{{X: 130, Y: 100, Width: 60, Height: 40}},
		{{X: 160, Y: 100, Width: 60, Height: 40}},
	})

	h.store.err = errors.New("disk full")

	frame := gocv.NewMat()
	defer frame.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, h.src.Read(&frame))
		_, err := h.pipe.ProcessFrame(context.Background(), &frame)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, h.pipe.Stats().LogErrors)

	// a failed write does not start the cooldown
	h.store.err = nil
	require.NoError(t, h.src.Read(&frame))
	res, err := h.pipe.ProcessFrame(context.Background(), &frame)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Logged)
}

func TestDetectErrorSkipsFrame(t *testing.T) {

	h := newHarness(t, speeddetect.DefaultConfig(), [][]detect.Box{{}})
	h.det.err = detect.ErrInvalidInput

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	_, err := h.pipe.ProcessFrame(context.Background(), &frame)
	assert.ErrorIs(t, err, detect.ErrInvalidInput)
	assert.Equal(t, 0, h.pipe.Stats().Frames)
	assert.Equal(t, 1, h.pipe.Stats().DetectErrors)
}

func TestEmptyFrameSkipped(t *testing.T) {

	h := newHarness(t, speeddetect.DefaultConfig(), [][]detect.Box{
		{{X: 100, Y: 100, Width: 60, Height: 40}},
	})

	frame := gocv.NewMat()
	defer frame.Close()

	_, err := h.pipe.ProcessFrame(context.Background(), &frame)
	assert.ErrorIs(t, err, detect.ErrInvalidInput)
	assert.Equal(t, 0, h.det.calls)
	assert.Equal(t, 0, h.pipe.Stats().Frames)
	assert.Equal(t, 0, h.pipe.tracker.FrameID())
}

func TestGreedySnapshotMode(t *testing.T) {

	cfg := speeddetect.DefaultConfig()
	cfg.Matcher = speeddetect.MatcherGreedy
	cfg.MaxLost = 0

	h := newHarness(t, cfg, [][]detect.Box{
		{{X: 100, Y: 100, Width: 60, Height: 40}},
		{},
		{{X: 130, Y: 100, Width: 60, Height: 40}},
	})

	res := h.process(t)

	// the empty frame replaced the snapshot so the vehicle is new again
	assert.Empty(t, res[1].Vehicles)
	assert.False(t, res[2].Vehicles[0].Matched)
	assert.Equal(t, 0.0, res[2].Vehicles[0].SpeedMPH)
}

func TestRunUntilEndOfStream(t *testing.T) {

	h := newHarness(t, speeddetect.DefaultConfig(), [][]detect.Box{
		{{X: 100, Y: 100, Width: 60, Height: 40}},
		{{X: 130, Y: 100, Width: 60, Height: 40}},
	})

	require.NoError(t, h.pipe.Run(context.Background()))
	assert.Equal(t, 2, h.pipe.Stats().Frames)
	assert.Len(t, h.store.entries, 1)
}

func TestRunCancelled(t *testing.T) {

	h := newHarness(t, speeddetect.DefaultConfig(), [][]detect.Box{
		{{X: 100, Y: 100, Width: 60, Height: 40}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.pipe.Run(ctx))
	assert.Equal(t, 0, h.pipe.Stats().Frames)
}

func TestRunQuitKey(t *testing.T) {

	frames := make([]gocv.Mat, 3)
	for i := range frames {
		frames[i] = gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	}

	src := source.NewBuffer(frames)
	defer src.Close()

	disp := &quitDisplay{quitOn: 1}

	pipe, err := New(speeddetect.DefaultConfig(), Deps{
		Source:     src,
		Detector:   &fakeDetector{},
		Recognizer: &fakeRecognizer{},
		Store:      &memStore{},
		Display:    disp,
	})
	require.NoError(t, err)
	defer pipe.Close()

	require.NoError(t, pipe.Run(context.Background()))
	assert.Equal(t, 1, pipe.Stats().Frames)
	assert.Equal(t, 1, disp.shown)
}

func TestNewValidation(t *testing.T) {

	cfg := speeddetect.DefaultConfig()
	cfg.VehicleWidth = 0

	_, err := New(cfg, Deps{})
	assert.ErrorIs(t, err, speeddetect.ErrInvalidConfig)

	_, err = New(speeddetect.DefaultConfig(), Deps{})
	assert.Error(t, err)
}
