package speeddetect

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// ErrInvalidConfig is returned by Validate when a configuration value is
// outside of its allowed range
var ErrInvalidConfig = errors.New("invalid configuration")

// CooldownPolicy defines how the log cooldown window is keyed
type CooldownPolicy string

const (
	// CooldownGlobal applies a single cooldown window to every log attempt
	// regardless of which vehicle triggered it
	CooldownGlobal CooldownPolicy = "global"
	// CooldownPlate keys the cooldown window by recognised plate text
	CooldownPlate CooldownPolicy = "plate"
	// CooldownTrack keys the cooldown window by vehicle track ID
	CooldownTrack CooldownPolicy = "track"
)

// Matcher names the strategy used to associate vehicles between frames
type Matcher string

const (
	// MatcherGreedy matches each vehicle to its nearest previous centroid
	// without exclusivity
	MatcherGreedy Matcher = "greedy"
	// MatcherAssignment solves a gated minimum cost bipartite assignment
	MatcherAssignment Matcher = "assignment"
)

// Config holds the static parameters fixed at process start
type Config struct {
	// VehicleWidth is the assumed real world width of every vehicle in feet
	VehicleWidth float64 `json:"vehicle_width_feet"`
	// FrameRate is the nominal capture rate of the video source in fps
	FrameRate float64 `json:"frame_rate"`
	// SpeedLimit is the speed in MPH a vehicle must exceed to have its plate
	// read and logged
	SpeedLimit float64 `json:"speed_limit_mph"`
	// UnitConversion converts feet per second into the reported speed unit
	UnitConversion float64 `json:"unit_conversion"`
	// Cooldown is the minimum interval between two accepted log writes
	Cooldown Duration `json:"cooldown"`
	// CooldownPolicy selects how the cooldown window is keyed
	CooldownPolicy CooldownPolicy `json:"cooldown_policy"`

	// Tracker settings
	Matcher         Matcher `json:"matcher"`
	MaxDistance     float64 `json:"max_match_distance_px"`
	MaxLost         int     `json:"max_lost_frames"`
	HistorySize     int     `json:"history_size"`
	SmoothingWindow int     `json:"smoothing_window"`

	// Detector settings
	VehicleModel        string  `json:"vehicle_model"`
	PlateModel          string  `json:"plate_model"`
	VehicleScaleFactor  float64 `json:"vehicle_scale_factor"`
	VehicleMinNeighbors int     `json:"vehicle_min_neighbors"`
	PlateScaleFactor    float64 `json:"plate_scale_factor"`
	PlateMinNeighbors   int     `json:"plate_min_neighbors"`
	DetectScale         float64 `json:"detect_scale"`

	// Plate reading settings
	MinPlateLength int     `json:"min_plate_length"`
	MaxPlateLength int     `json:"max_plate_length"`
	PlatePadding   float64 `json:"plate_padding"`
	OCRLanguage    string  `json:"ocr_language"`
	OCRWhitelist   string  `json:"ocr_whitelist"`

	// Output settings
	LogFile  string `json:"log_file"`
	Database string `json:"database"`

	// Source holds the camera stream details
	Source RTSPSource `json:"source"`
}

// Duration wraps time.Duration so it can be given as a string such as "5s"
// in JSON config files
type Duration struct {
	time.Duration
}

// MarshalJSON encodes the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts either a duration string or a number of seconds
func (d *Duration) UnmarshalJSON(b []byte) error {

	var v interface{}

	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val * float64(time.Second))
		return nil

	case string:
		dur, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		d.Duration = dur
		return nil
	}

	return fmt.Errorf("invalid duration %s", string(b))
}

// DefaultConfig returns the configuration used when no overrides are given
func DefaultConfig() Config {
	return Config{
		VehicleWidth:        6,
		FrameRate:           30,
		SpeedLimit:          10,
		UnitConversion:      0.681818,
		Cooldown:            Duration{5 * time.Second},
		CooldownPolicy:      CooldownGlobal,
		Matcher:             MatcherAssignment,
		MaxDistance:         150,
		MaxLost:             5,
		HistorySize:         30,
		SmoothingWindow:     1,
		VehicleModel:        "cars.xml",
		PlateModel:          "haarcascade_russian_plate_number.xml",
		VehicleScaleFactor:  1.1,
		VehicleMinNeighbors: 5,
		PlateScaleFactor:    1.2,
		PlateMinNeighbors:   5,
		DetectScale:         1,
		MinPlateLength:      2,
		MaxPlateLength:      10,
		PlatePadding:        0,
		OCRLanguage:         "eng",
		LogFile:             "log.csv",
		Source: RTSPSource{
			Path: "/cam/realmonitor?channel=1&subtype=0",
		},
	}
}

// LoadConfig reads a JSON config file over the defaults.  Fields omitted from
// the file keep their default value.
func LoadConfig(path string) (Config, error) {

	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)

	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)

	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}

	const maxFileSize = 1 * 1024 * 1024

	if info.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)

	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration values are usable
func (c Config) Validate() error {

	switch {
	case c.VehicleWidth <= 0:
		return fmt.Errorf("%w: vehicle width must be positive, got %v", ErrInvalidConfig, c.VehicleWidth)
	case c.FrameRate <= 0:
		return fmt.Errorf("%w: frame rate must be positive, got %v", ErrInvalidConfig, c.FrameRate)
	case c.UnitConversion <= 0:
		return fmt.Errorf("%w: unit conversion must be positive, got %v", ErrInvalidConfig, c.UnitConversion)
	case c.SpeedLimit < 0:
		return fmt.Errorf("%w: speed limit must not be negative, got %v", ErrInvalidConfig, c.SpeedLimit)
	case c.Cooldown.Duration < 0:
		return fmt.Errorf("%w: cooldown must not be negative, got %s", ErrInvalidConfig, c.Cooldown)
	case c.MaxLost < 0:
		return fmt.Errorf("%w: max lost frames must not be negative, got %d", ErrInvalidConfig, c.MaxLost)
	case c.HistorySize < 2:
		return fmt.Errorf("%w: history size must be at least 2, got %d", ErrInvalidConfig, c.HistorySize)
	case c.SmoothingWindow < 1:
		return fmt.Errorf("%w: smoothing window must be at least 1, got %d", ErrInvalidConfig, c.SmoothingWindow)
	case c.DetectScale <= 0 || c.DetectScale > 1:
		return fmt.Errorf("%w: detect scale must be in (0, 1], got %v", ErrInvalidConfig, c.DetectScale)
	case c.VehicleScaleFactor <= 1 || c.PlateScaleFactor <= 1:
		return fmt.Errorf("%w: cascade scale factors must be greater than 1", ErrInvalidConfig)
	case c.MinPlateLength < 0 || c.MaxPlateLength <= c.MinPlateLength+1:
		return fmt.Errorf("%w: plate length bounds (%d, %d) leave no accepted length",
			ErrInvalidConfig, c.MinPlateLength, c.MaxPlateLength)
	case c.PlatePadding < 0:
		return fmt.Errorf("%w: plate padding must not be negative, got %v", ErrInvalidConfig, c.PlatePadding)
	case c.LogFile == "":
		return fmt.Errorf("%w: log file is required", ErrInvalidConfig)
	}

	switch c.CooldownPolicy {
	case CooldownGlobal, CooldownPlate, CooldownTrack:
	default:
		return fmt.Errorf("%w: unknown cooldown policy %q", ErrInvalidConfig, c.CooldownPolicy)
	}

	switch c.Matcher {
	case MatcherGreedy:
	case MatcherAssignment:
		if c.MaxDistance <= 0 {
			return fmt.Errorf("%w: max match distance must be positive, got %v", ErrInvalidConfig, c.MaxDistance)
		}
	default:
		return fmt.Errorf("%w: unknown matcher %q", ErrInvalidConfig, c.Matcher)
	}

	return nil
}

// RTSPSource defines the IP camera stream details
type RTSPSource struct {
	// URL is a complete stream location.  When set it is used as is and the
	// remaining fields are ignored
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Address  string `json:"address"`
	// Path is the device specific stream path, eg: for Dahua cameras
	// "/cam/realmonitor?channel=1&subtype=0"
	Path string `json:"path"`
}

// StreamURL returns the RTSP URL with authentication if provided
func (r RTSPSource) StreamURL() string {

	if r.URL != "" {
		return r.URL
	}

	u := url.URL{
		Scheme: "rtsp",
		Host:   r.Address,
	}

	if r.Username != "" {
		if r.Password != "" {
			u.User = url.UserPassword(r.Username, r.Password)
		} else {
			u.User = url.User(r.Username)
		}
	}

	// the stream path can carry its own query string which must not be
	// escaped
	return u.String() + r.Path
}

// Redacted returns the stream URL with the password hidden, used for logging
func (r RTSPSource) Redacted() string {

	u, err := url.Parse(r.StreamURL())

	if err != nil {
		return "<invalid url>"
	}

	return u.Redacted()
}
