/*
Speed detection of vehicles passing a fixed camera.  Vehicles over the speed
limit have their license plate read and recorded to a CSV log.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	speeddetect "github.com/JuneshG/Vehicle-Speed-Detection-System"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/affinity"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/display"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/eventlog"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/pipeline"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/plate/tesseract"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/render"
	"github.com/JuneshG/Vehicle-Speed-Detection-System/source"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// WindowTitle is the title of the interactive display window
const WindowTitle = "Car Speed Detection"

func main() {

	// read in cli flags
	configFile := flag.String("config", "", "JSON configuration file, values override the defaults")
	src := flag.String("source", "", "Video source: RTSP URL, video file or camera device id.  Overrides the configured camera")
	logFile := flag.String("log", "", "CSV file speed events are appended to")
	dbFile := flag.String("db", "", "Optional SQLite database speed events are also stored in")
	limit := flag.Float64("limit", 0, "Speed limit in MPH, vehicles faster than this have their plate logged")
	cooldown := flag.Duration("cooldown", 0, "Minimum interval between logged events")
	policy := flag.String("cooldown-policy", "", "Cooldown keying [global|plate|track]")
	matcher := flag.String("matcher", "", "Vehicle matching between frames [greedy|assignment]")
	vehicleModel := flag.String("vehicle-model", "", "Haar cascade XML file for vehicles")
	plateModel := flag.String("plate-model", "", "Haar cascade XML file for license plates")
	headless := flag.Bool("headless", false, "Do not open a display window")
	httpAddr := flag.String("http", "", "HTTP address to serve annotated frames as MJPEG at /stream, format address:port")
	fontFile := flag.String("font", "", "TTF font file used to draw plate text")
	status := flag.Bool("status", false, "Draw a frame summary bar on the annotated image")
	logLevel := flag.String("log-level", "info", "Log level [debug|info|warn|error]")
	logJSON := flag.Bool("log-json", false, "Write logs as JSON instead of console text")
	cpus := flag.String("cpus", "", "CPU cores to run detection on, eg: 4-7, 0,2,4 or a platform name such as rk3588")

	flag.Parse()

	setupLogging(*logLevel, *logJSON)

	// the processing loop and highgui calls stay on the main thread
	runtime.LockOSThread()

	if *cpus != "" {
		pinCores(*cpus)
	}

	cfg := speeddetect.DefaultConfig()

	if *configFile != "" {
		var err error
		cfg, err = speeddetect.LoadConfig(*configFile)

		if err != nil {
			log.Fatal().Err(err).Str("file", *configFile).Msg("Error loading config")
		}
	}

	// flags explicitly given take priority over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Source.URL = *src
		case "log":
			cfg.LogFile = *logFile
		case "db":
			cfg.Database = *dbFile
		case "limit":
			cfg.SpeedLimit = *limit
		case "cooldown":
			cfg.Cooldown.Duration = *cooldown
		case "cooldown-policy":
			cfg.CooldownPolicy = speeddetect.CooldownPolicy(*policy)
		case "matcher":
			cfg.Matcher = speeddetect.Matcher(*matcher)
		case "vehicle-model":
			cfg.VehicleModel = *vehicleModel
		case "plate-model":
			cfg.PlateModel = *plateModel
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if err := run(cfg, *headless, *httpAddr, *fontFile, *status); err != nil {
		log.Fatal().Err(err).Msg("Speed detection failed")
	}
}

// setupLogging configures the global zerolog logger
func setupLogging(level string, asJSON bool) {

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))

	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	if !asJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

// pinCores sets the CPU affinity of the processing thread, failure is not
// fatal
func pinCores(list string) {

	cores, err := affinity.ParseCores(list)

	if err != nil {
		log.Warn().Err(err).Msg("Invalid CPU core list")
		return
	}

	if err := affinity.Set(affinity.CoreMask(cores)); err != nil {
		log.Warn().Err(err).Msg("Failed to set CPU affinity")
		return
	}

	log.Info().Ints("cores", cores).Msg("Processing pinned to CPU cores")
}

// run wires the components together and processes the stream until it ends
// or the process is signalled
func run(cfg speeddetect.Config, headless bool, httpAddr, fontFile string, status bool) error {

	opts := detect.DefaultCascadeOptions()
	opts.Vehicle.ScaleFactor = cfg.VehicleScaleFactor
	opts.Vehicle.MinNeighbors = cfg.VehicleMinNeighbors
	opts.Plate.ScaleFactor = cfg.PlateScaleFactor
	opts.Plate.MinNeighbors = cfg.PlateMinNeighbors
	opts.Scale = cfg.DetectScale

	detector, err := detect.NewCascade(cfg.VehicleModel, cfg.PlateModel, opts)

	if err != nil {
		return fmt.Errorf("error loading detection models: %w", err)
	}

	defer detector.Close()

	ocr, err := tesseract.New(tesseract.Options{
		Language:  cfg.OCRLanguage,
		Whitelist: cfg.OCRWhitelist,
	})

	if err != nil {
		return fmt.Errorf("error creating OCR engine: %w", err)
	}

	defer ocr.Close()

	store, err := openStore(cfg)

	if err != nil {
		return err
	}

	defer store.Close()

	log.Info().Str("source", cfg.Source.Redacted()).Msg("Connecting to video source")

	capture, err := source.Open(cfg.Source.StreamURL())

	if err != nil {
		return fmt.Errorf("error opening video source %s: %w", cfg.Source.Redacted(), err)
	}

	defer capture.Close()

	if fps := capture.FrameRate(); fps > 0 && fps != cfg.FrameRate {
		log.Warn().Float64("source_fps", fps).Float64("config_fps", cfg.FrameRate).
			Msg("Video source frame rate differs from configured frame rate, speeds use the configured rate")
	}

	var displays display.Multi

	if !headless {
		win := display.NewWindow(WindowTitle)
		defer win.Close()
		displays = append(displays, win)
	}

	if httpAddr != "" {
		stream := display.NewMJPEG(80)
		defer stream.Close()
		displays = append(displays, stream)

		srv := serveStream(httpAddr, stream)

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	style := render.DefaultStyle()
	style.ShowStatus = status

	if fontFile != "" {
		ttf, err := render.LoadTTF(fontFile, 20)

		if err != nil {
			return err
		}

		defer ttf.Close()
		style.TTF = ttf
	}

	pipe, err := pipeline.New(cfg, pipeline.Deps{
		Source:     capture,
		Detector:   detector,
		Recognizer: ocr,
		Store:      store,
		Display:    displays,
		Style:      &style,
	})

	if err != nil {
		return fmt.Errorf("error creating pipeline: %w", err)
	}

	defer pipe.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("System running... Press 'q' to quit.")

	err = pipe.Run(ctx)

	stats := pipe.Stats()

	log.Info().
		Int("frames", stats.Frames).
		Int("vehicles", stats.Vehicles).
		Int("over_limit", stats.OverLimit).
		Int("logged", stats.Logged).
		Int("suppressed", stats.Suppressed).
		Int("plates_read", stats.Plates.Candidates).
		Int("plates_accepted", stats.Plates.Accepted).
		Msgf("Program stopped. Data saved to %s", cfg.LogFile)

	if ms, ok := store.(*eventlog.MultiStore); ok && ms.MirrorErrors() > 0 {
		log.Warn().Int64("failed", ms.MirrorErrors()).Str("database", cfg.Database).
			Msg("Some speed events were not stored in the database")
	}

	return err
}

// openStore opens the CSV log and the optional SQLite database
func openStore(cfg speeddetect.Config) (eventlog.Store, error) {

	csvStore, err := eventlog.NewCSVStore(cfg.LogFile)

	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}

	if cfg.Database == "" {
		return csvStore, nil
	}

	db, err := eventlog.NewSQLiteStore(cfg.Database)

	if err != nil {
		csvStore.Close()
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	return eventlog.NewMultiStore(csvStore, db), nil
}

// serveStream starts an HTTP server for the MJPEG stream
func serveStream(addr string, stream *display.MJPEG) *http.Server {

	mux := http.NewServeMux()
	mux.Handle("/stream", stream)

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Info().Msgf("Open browser and view video at http://%s/stream", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Stream server failed")
		}
	}()

	return srv
}
