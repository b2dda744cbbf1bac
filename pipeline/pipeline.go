// Package pipeline runs the per frame detection, tracking, speed estimation,
// plate reading and event logging loop
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	speeddetect "github.com/JuneshG/Vehicle-Speed-Detection-System"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/display"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/eventlog"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/plate"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/render"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/source"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/speed"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/tracker"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// Deps are the components a Pipeline drives.  The caller owns them and is
// responsible for closing them.
type Deps struct {
	Source     source.Source
	Detector   detect.Detector
	Recognizer plate.Recognizer
	Store      eventlog.Store
	// Display defaults to display.Headless
	Display display.Display
	// Clock defaults to the system clock
	Clock eventlog.Clock
	// Style defaults to render.DefaultStyle
	Style *render.Style
}

// VehicleResult is the outcome for one vehicle detected in a frame
type VehicleResult struct {
	// TrackID of the vehicle
	TrackID int
	// Box is the detected bounding box
	Box detect.Box
	// Matched is false for a vehicle seen for the first time, its speed is
	// zero
	Matched bool
	// Estimate is the raw speed estimate, zero when not matched
	Estimate speed.Estimate
	// SpeedMPH is the reported speed after smoothing
	SpeedMPH float64
	// OverLimit is true when SpeedMPH is strictly greater than the limit
	OverLimit bool
	// Plates are the plate candidates read, only for vehicles over the limit
	Plates []plate.Candidate
	// Decisions has the cooldown decision for each accepted plate
	Decisions []eventlog.Decision
}

// FrameResult is the outcome of processing one frame
type FrameResult struct {
	FrameID  int
	Vehicles []VehicleResult
	// Logged is the number of events written
	Logged int
	// Suppressed is the number of events dropped by the cooldown
	Suppressed int
}

// Stats are counters accumulated over the life of a Pipeline
type Stats struct {
	Frames       int
	Vehicles     int
	OverLimit    int
	Logged       int
	Suppressed   int
	DetectErrors int
	LogErrors    int
	Plates       plate.Stats
}

// Pipeline processes frames from a Source
type Pipeline struct {
	cfg       speeddetect.Config
	deps      Deps
	style     render.Style
	tracker   *tracker.Tracker
	estimator *speed.Estimator
	smoother  *speed.Smoother
	plates    *plate.Pipeline
	cooldown  *eventlog.Cooldown
	gray      gocv.Mat
	stats     Stats
}

// New validates the configuration and assembles a Pipeline
func New(cfg speeddetect.Config, deps Deps) (*Pipeline, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if deps.Source == nil || deps.Detector == nil || deps.Recognizer == nil || deps.Store == nil {
		return nil, errors.New("source, detector, recognizer and store are required")
	}

	if deps.Display == nil {
		deps.Display = display.Headless{}
	}

	if deps.Clock == nil {
		deps.Clock = eventlog.SystemClock{}
	}

	style := render.DefaultStyle()

	if deps.Style != nil {
		style = *deps.Style
	}

	est, err := speed.NewEstimator(cfg.VehicleWidth, cfg.FrameRate, cfg.UnitConversion)

	if err != nil {
		return nil, fmt.Errorf("error creating speed estimator: %w", err)
	}

	cd, err := eventlog.NewCooldown(deps.Store, deps.Clock, cfg.Cooldown.Duration,
		eventlog.Policy(cfg.CooldownPolicy))

	if err != nil {
		return nil, fmt.Errorf("error creating cooldown: %w", err)
	}

	var matcher tracker.Matcher = tracker.Greedy{}

	if cfg.Matcher == speeddetect.MatcherAssignment {
		matcher = tracker.Assignment{MaxDistance: cfg.MaxDistance}
	}

	return &Pipeline{
		cfg:   cfg,
		deps:  deps,
		style: style,
		tracker: tracker.New(tracker.Params{
			Matcher:     matcher,
			MaxLost:     cfg.MaxLost,
			HistorySize: cfg.HistorySize,
		}),
		estimator: est,
		smoother:  speed.NewSmoother(cfg.SmoothingWindow),
		plates: plate.NewPipeline(deps.Detector, deps.Recognizer, plate.Params{
			MinLength: cfg.MinPlateLength,
			MaxLength: cfg.MaxPlateLength,
			Padding:   cfg.PlatePadding,
		}),
		cooldown: cd,
		gray:     gocv.NewMat(),
	}, nil
}

// Run processes frames until the source ends, the context is cancelled or
// the display asks to quit.  The frame being processed when cancellation is
// requested is completed first.
func (p *Pipeline) Run(ctx context.Context) error {

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Processing cancelled")
			return nil
		default:
		}

		if err := p.deps.Source.Read(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				log.Info().Int("frames", p.stats.Frames).Msg("End of video stream")
			} else {
				log.Warn().Err(err).Msg("Error reading frame, stopping")
			}
			return nil
		}

		// events accepted for this frame are written even if cancellation
		// arrives mid frame
		if _, err := p.ProcessFrame(context.WithoutCancel(ctx), &frame); err != nil {
			log.Error().Err(err).Int("frame", p.tracker.FrameID()).Msg("Error processing frame")
		}

		if err := p.deps.Display.Show(frame); err != nil {
			log.Warn().Err(err).Msg("Error displaying frame")
		}

		if p.deps.Display.Quit() {
			log.Info().Msg("Quit requested")
			return nil
		}
	}
}

// ProcessFrame runs detection, tracking, speed estimation, plate reading and
// logging on a BGR frame and annotates the frame in place.  An empty frame or
// a detection error skips the frame without updating the tracker.
func (p *Pipeline) ProcessFrame(ctx context.Context, frame *gocv.Mat) (FrameResult, error) {

	var res FrameResult

	if frame.Empty() {
		p.stats.DetectErrors++
		return res, fmt.Errorf("%w: empty frame", detect.ErrInvalidInput)
	}

	if frame.Channels() == 1 {
		frame.CopyTo(&p.gray)
	} else {
		gocv.CvtColor(*frame, &p.gray, gocv.ColorBGRToGray)
	}

	boxes, err := p.deps.Detector.DetectVehicles(p.gray)

	if err != nil {
		p.stats.DetectErrors++
		return res, fmt.Errorf("error detecting vehicles: %w", err)
	}

	update, err := p.tracker.Update(detect.Sanitize(boxes))

	if err != nil {
		return res, fmt.Errorf("error tracking vehicles: %w", err)
	}

	p.stats.Frames++
	res.FrameID = update.FrameID

	for _, id := range update.Removed {
		p.smoother.Forget(id)
	}

	annotations := make([]render.Vehicle, 0, len(update.Observations))

	for _, obs := range update.Observations {

		vr := p.measure(obs)

		if vr.OverLimit {
			p.readPlates(ctx, p.gray, &vr, &res)
		}

		res.Vehicles = append(res.Vehicles, vr)
		annotations = append(annotations, annotation(vr, obs))
	}

	p.stats.Vehicles += len(res.Vehicles)
	p.stats.Plates = p.plates.Stats()

	render.Vehicles(frame, annotations, p.style)

	if p.style.ShowStatus {
		render.Status(frame, fmt.Sprintf("Frame: %d, Vehicles: %d, Logged: %d",
			res.FrameID, len(res.Vehicles), p.stats.Logged), p.style.Font, render.White)
	}

	return res, nil
}

// measure estimates the speed of an observation.  A vehicle with no
// previous position has a speed of zero.
func (p *Pipeline) measure(obs tracker.Observation) VehicleResult {

	vr := VehicleResult{
		TrackID: obs.Track.ID(),
		Box:     obs.Box,
		Matched: obs.Matched,
	}

	if !obs.Matched {
		return vr
	}

	est, err := p.estimator.Estimate(obs.Centroid, obs.Previous, obs.Box.Width, obs.Frames)

	if err != nil {
		log.Warn().Err(err).Int("track_id", vr.TrackID).Msg("Speed estimate failed")
		return vr
	}

	vr.Estimate = est
	vr.SpeedMPH = p.smoother.Add(vr.TrackID, est.MPH)
	vr.OverLimit = vr.SpeedMPH > p.cfg.SpeedLimit

	return vr
}

// readPlates reads the plates of an over limit vehicle and offers every
// accepted reading to the cooldown logger
func (p *Pipeline) readPlates(ctx context.Context, gray gocv.Mat, vr *VehicleResult, res *FrameResult) {

	p.stats.OverLimit++

	cands, err := p.plates.Read(gray, vr.Box)

	if err != nil {
		log.Warn().Err(err).Int("track_id", vr.TrackID).Msg("Plate detection failed")
		return
	}

	vr.Plates = cands

	for _, c := range plate.Accepted(cands) {

		decision, err := p.cooldown.Offer(ctx, eventlog.Candidate{
			TrackID:  vr.TrackID,
			SpeedMPH: vr.SpeedMPH,
			Plate:    c.Result.Text,
		})

		if err != nil {
			p.stats.LogErrors++
			log.Error().Err(err).Int("track_id", vr.TrackID).Str("plate", c.Result.Text).
				Msg("Error logging speed event")
			continue
		}

		vr.Decisions = append(vr.Decisions, decision)

		if decision == eventlog.Suppressed {
			res.Suppressed++
			p.stats.Suppressed++
			continue
		}

		res.Logged++
		p.stats.Logged++

		log.Info().Int("track_id", vr.TrackID).
			Str("speed_mph", fmt.Sprintf("%.1f", vr.SpeedMPH)).
			Str("plate", c.Result.Text).
			Msg("LOGGED")
	}
}

// annotation builds the render details for a vehicle
func annotation(vr VehicleResult, obs tracker.Observation) render.Vehicle {

	v := render.Vehicle{
		Box:      vr.Box,
		TrackID:  vr.TrackID,
		SpeedMPH: vr.SpeedMPH,
		Speeding: vr.OverLimit,
		Trail:    obs.Track.History(),
	}

	for _, c := range vr.Plates {
		v.Plates = append(v.Plates, c.Frame)

		if c.Result.Kind == plate.Accepted && v.PlateText == "" {
			v.PlateText = c.Result.Text
		}
	}

	return v
}

// Stats returns the counters accumulated so far
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Close releases the pipeline's working buffers
func (p *Pipeline) Close() error {
	return p.gray.Close()
}
