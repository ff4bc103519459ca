// Package config loads the runtime configuration from a YAML file with
// environment variable overrides
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/swdee/go-posematch"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// eg: POSEMATCH_SESSION_TARGET_FPS
const EnvPrefix = "POSEMATCH"

// camera platforms with their own default texture dimensions
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// Config is the complete runtime configuration
type Config struct {
	Session     SessionConfig     `yaml:"session"`
	Camera      CameraConfig      `yaml:"camera"`
	Model       ModelConfig       `yaml:"model"`
	Render      RenderConfig      `yaml:"render"`
	Calibration CalibrationConfig `yaml:"calibration"`
	HTTP        HTTPConfig        `yaml:"http"`
	Log         LogConfig         `yaml:"log"`
}

// SessionConfig controls the frame loop and scoring
type SessionConfig struct {
	// TargetFPS is the frame loop rate
	TargetFPS int `yaml:"target_fps"`
	// Threshold is the keypoint confidence filter
	Threshold float64 `yaml:"threshold"`
	// ReferenceHeight is the pixel height reference stills are scaled to
	ReferenceHeight int `yaml:"reference_height"`
	// Coords is the scoring coordinate space, pixel or centred
	Coords string `yaml:"coords"`
	// SkeletonFile optionally overrides the default limb layout
	SkeletonFile string `yaml:"skeleton_file"`
}

// CameraConfig selects and sizes the frame source
type CameraConfig struct {
	// Device is a camera index or a video file/stream URL
	Device string `yaml:"device"`
	// Platform selects default texture dimensions, android or ios
	Platform      string `yaml:"platform"`
	TextureWidth  int    `yaml:"texture_width"`
	TextureHeight int    `yaml:"texture_height"`
	// Loop rewinds file sources when they reach the end
	Loop bool `yaml:"loop"`
}

// ModelConfig configures the NPU pose model
type ModelConfig struct {
	Path string `yaml:"path"`
	// Labels is an optional file naming the body part of each model keypoint
	Labels string `yaml:"labels"`
	// PoolSize is the number of runtimes to load across NPU cores
	PoolSize int `yaml:"pool_size"`
	// Platform is the Rockchip SoC, eg: rk3588
	Platform     string  `yaml:"platform"`
	BoxThreshold float32 `yaml:"box_threshold"`
	NMSThreshold float32 `yaml:"nms_threshold"`
}

// RenderConfig configures the overlay surface
type RenderConfig struct {
	// Backend is mat (gocv) or canvas (gg)
	Backend      string  `yaml:"backend"`
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	MarkerRadius float64 `yaml:"marker_radius"`
	LineWidth    float64 `yaml:"line_width"`
}

// CalibrationConfig configures the background calibration service client
type CalibrationConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPConfig configures the control API
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// textureDims are the default camera texture sizes per platform
var textureDims = map[string][2]int{
	PlatformAndroid: {1600, 1200},
	PlatformIOS:     {1080, 1920},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session.target_fps", 10)
	v.SetDefault("session.threshold", 0.32)
	v.SetDefault("session.reference_height", 500)
	v.SetDefault("session.coords", "pixel")
	v.SetDefault("session.skeleton_file", "")
	v.SetDefault("camera.device", "0")
	v.SetDefault("camera.platform", PlatformAndroid)
	v.SetDefault("camera.texture_width", 0)
	v.SetDefault("camera.texture_height", 0)
	v.SetDefault("camera.loop", false)
	v.SetDefault("model.path", "../data/yolov8n-pose-rk3588.rknn")
	v.SetDefault("model.labels", "")
	v.SetDefault("model.pool_size", 3)
	v.SetDefault("model.platform", "rk3588")
	v.SetDefault("model.box_threshold", 0.5)
	v.SetDefault("model.nms_threshold", 0.4)
	v.SetDefault("render.backend", "mat")
	v.SetDefault("render.width", 0)
	v.SetDefault("render.height", 0)
	v.SetDefault("render.marker_radius", 5)
	v.SetDefault("render.line_width", 2)
	v.SetDefault("calibration.enabled", false)
	v.SetDefault("calibration.base_url", "http://localhost:5000")
	v.SetDefault("calibration.timeout", "10s")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Default returns the configuration with every default applied
func Default() (*Config, error) {
	return load(viper.New(), "")
}

// Load reads the YAML config file at path, applies environment overrides and
// defaults, then validates the result.  An empty path loads defaults and
// environment overrides only.
func Load(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.WeaklyTypedInput = true
	})

	if err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills values that depend on other settings
func (c *Config) applyDefaults() {

	c.Camera.Platform = strings.ToLower(strings.TrimSpace(c.Camera.Platform))

	if dims, ok := textureDims[c.Camera.Platform]; ok {
		if c.Camera.TextureWidth <= 0 {
			c.Camera.TextureWidth = dims[0]
		}

		if c.Camera.TextureHeight <= 0 {
			c.Camera.TextureHeight = dims[1]
		}
	}

	// overlay matches the camera texture unless sized explicitly
	if c.Render.Width <= 0 {
		c.Render.Width = c.Camera.TextureWidth
	}

	if c.Render.Height <= 0 {
		c.Render.Height = c.Camera.TextureHeight
	}
}

// Validate checks the configuration values are usable
func (c *Config) Validate() error {

	if c.Session.TargetFPS <= 0 {
		return fmt.Errorf("session.target_fps must be positive, got %d", c.Session.TargetFPS)
	}

	if c.Session.Threshold <= 0 || c.Session.Threshold >= 1 {
		return fmt.Errorf("session.threshold must be between 0 and 1, got %v", c.Session.Threshold)
	}

	if c.Session.ReferenceHeight <= 0 {
		return fmt.Errorf("session.reference_height must be positive, got %d", c.Session.ReferenceHeight)
	}

	if _, err := posematch.ParseSpace(c.Session.Coords); err != nil {
		return fmt.Errorf("session.coords must be pixel or centred: %w", err)
	}

	if _, ok := textureDims[c.Camera.Platform]; !ok {
		return fmt.Errorf("camera.platform must be android or ios, got %q", c.Camera.Platform)
	}

	if c.Model.PoolSize < 1 {
		return fmt.Errorf("model.pool_size must be at least 1, got %d", c.Model.PoolSize)
	}

	switch c.Render.Backend {
	case "mat", "canvas":
	default:
		return fmt.Errorf("render.backend must be mat or canvas, got %q", c.Render.Backend)
	}

	if c.Calibration.Enabled && c.Calibration.BaseURL == "" {
		return fmt.Errorf("calibration.base_url is required when calibration is enabled")
	}

	return nil
}

// FrameInterval is the frame loop period derived from the target FPS
func (s SessionConfig) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / float64(s.TargetFPS))
}
