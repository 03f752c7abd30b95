// Package config loads the application configuration from a JSON file laid
// over built-in defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/tracker"
)

// Detector kinds.
const (
	DetectorCascade = "cascade"
	DetectorPigo    = "pigo"
)

// Built-in driver names. Any other name refers to an external driver.
const (
	DriverRobotgo  = "robotgo"
	DriverRecorder = "recorder"
)

// maxFileSize bounds the config file size.
const maxFileSize = 1 * 1024 * 1024

// Config is the root configuration.
type Config struct {
	Camera   capture.Options `json:"camera"`
	Detector DetectorConfig  `json:"detector"`
	Tracker  tracker.Config  `json:"tracker"`
	Pipeline PipelineConfig  `json:"pipeline"`
	Driver   DriverConfig    `json:"driver"`
	Server   ServerConfig    `json:"server"`
	Store    StoreConfig     `json:"store"`
}

// DetectorConfig selects the face detector.
type DetectorConfig struct {
	// Kind is "cascade" (OpenCV Haar/LBP XML) or "pigo".
	Kind string `json:"kind"`
	// Path is the cascade file.
	Path string `json:"path"`
	// MinQuality drops pigo detections below this score.
	MinQuality float32 `json:"min_quality"`
}

// PipelineConfig tunes the capture loop.
type PipelineConfig struct {
	IdleFPS         int     `json:"idle_fps"`
	ActiveFPS       int     `json:"active_fps"`
	IdleTimeout     string  `json:"idle_timeout"`
	MotionThreshold float64 `json:"motion_threshold"`
	QueueSize       int     `json:"queue_size"`
	TrainFrames     int     `json:"train_frames"`
	TrainInterval   string  `json:"train_interval"`
}

// DriverConfig selects where cursor states go.
type DriverConfig struct {
	Name    string `json:"name"`
	Dir     string `json:"dir"`
	Timeout string `json:"timeout"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr      string `json:"addr"`
	StaticDir string `json:"static_dir"`
}

// StoreConfig locates the database.
type StoreConfig struct {
	Path string `json:"path"`
}

// Default returns the defaults. Paths are relative to dataDir.
func Default(dataDir string) Config {
	return Config{
		Camera: capture.DefaultOptions(),
		Detector: DetectorConfig{
			Kind:       DetectorCascade,
			Path:       filepath.Join(dataDir, "haarcascade_frontalface_alt.xml"),
			MinQuality: 5,
		},
		Tracker: tracker.DefaultConfig(),
		Pipeline: PipelineConfig{
			IdleFPS:         5,
			ActiveFPS:       15,
			IdleTimeout:     "2s",
			MotionThreshold: 1.0,
			QueueSize:       2,
			TrainFrames:     30,
			TrainInterval:   "100ms",
		},
		Driver: DriverConfig{
			Name:    DriverRobotgo,
			Dir:     filepath.Join(dataDir, "drivers"),
			Timeout: "2s",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Store: StoreConfig{
			Path: filepath.Join(dataDir, "mudra.db"),
		},
	}
}

// DataDir returns ~/.mudra.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".mudra"), nil
}

// Load reads path over the defaults. Fields omitted from the file keep their
// default values. A missing file yields the defaults.
func Load(path string, dataDir string) (Config, error) {
	cfg := Default(dataDir)
	if path == "" {
		return cfg, nil
	}

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	var errs []error

	if c.Camera.Source == "" {
		errs = append(errs, errors.New("camera.source must be set"))
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		errs = append(errs, fmt.Errorf("camera size must not be negative, got %dx%d", c.Camera.Width, c.Camera.Height))
	}

	switch c.Detector.Kind {
	case DetectorCascade, DetectorPigo:
	default:
		errs = append(errs, fmt.Errorf("detector.kind must be %q or %q, got %q", DetectorCascade, DetectorPigo, c.Detector.Kind))
	}

	if err := c.Tracker.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Pipeline.IdleFPS <= 0 || c.Pipeline.ActiveFPS <= 0 {
		errs = append(errs, fmt.Errorf("pipeline fps must be positive, got idle=%d active=%d", c.Pipeline.IdleFPS, c.Pipeline.ActiveFPS))
	}
	if c.Pipeline.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.queue_size must be positive, got %d", c.Pipeline.QueueSize))
	}
	if c.Pipeline.TrainFrames <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.train_frames must be positive, got %d", c.Pipeline.TrainFrames))
	}

	for name, s := range map[string]string{
		"pipeline.idle_timeout":   c.Pipeline.IdleTimeout,
		"pipeline.train_interval": c.Pipeline.TrainInterval,
		"driver.timeout":          c.Driver.Timeout,
	} {
		if _, err := time.ParseDuration(s); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s '%s': %w", name, s, err))
		}
	}

	if c.Driver.Name == "" {
		errs = append(errs, errors.New("driver.name must be set"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path must be set"))
	}

	return errors.Join(errs...)
}

// GetIdleTimeout returns the idle timeout, or 2s if it does not parse.
func (p PipelineConfig) GetIdleTimeout() time.Duration {
	return parseDuration(p.IdleTimeout, 2*time.Second)
}

// GetTrainInterval returns the pause between training frames, or 100ms if it
// does not parse.
func (p PipelineConfig) GetTrainInterval() time.Duration {
	return parseDuration(p.TrainInterval, 100*time.Millisecond)
}

// GetTimeout returns the driver reply timeout, or 2s if it does not parse.
func (d DriverConfig) GetTimeout() time.Duration {
	return parseDuration(d.Timeout, 2*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
