// Package config reads the tapevision configuration: the coprocessor's frc.json with an added
// section per component.
package config

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/tapevision/camera"
	"go.viam.com/tapevision/stream"
	"go.viam.com/tapevision/telemetry"
	"go.viam.com/tapevision/vision/pipeline"
	"go.viam.com/tapevision/vision/tape"
	"go.viam.com/tapevision/vision/triangulation"
)

// DefaultPath is where the coprocessor image keeps its configuration.
const DefaultPath = "/boot/frc.json"

// NTMode says whether the telemetry table is served by the robot controller (client) or by
// this process's host (server).
type NTMode string

// Accepted ntmode values.
const (
	NTClient NTMode = "client"
	NTServer NTMode = "server"
)

// Defaults applied by Read.
const (
	DefaultTable          = "Shuffleboard"
	DefaultRedisPort      = 6379
	DefaultStreamAddress  = ":1181"
	DefaultLogMaxSizeMB   = 50
	DefaultLogMaxBackups  = 3
	DefaultCameraDriver   = camera.DriverV4L2
	defaultServerHostname = "127.0.0.1"
)

// Config is the whole configuration. It is not modified after Read returns it.
type Config struct {
	Team      int             `json:"team" validate:"gte=0,lte=25599"`
	NTMode    NTMode          `json:"ntmode,omitempty"`
	Cameras   []CameraConfig  `json:"cameras" validate:"dive"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Stream    StreamConfig    `json:"stream"`
	Vision    VisionConfig    `json:"vision"`
	Log       LogConfig       `json:"log"`

	// ConfigFilePath is the file the config was read from.
	ConfigFilePath string `json:"-"`
	// Unused lists keys present in the file that nothing reads, e.g. a camera's stream block.
	Unused []string `json:"-"`
}

// PropertyConfig is one raw device control.
type PropertyConfig struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// CameraConfig is one entry of "cameras". The first camera is the one the vision loop reads.
type CameraConfig struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	Driver      string  `json:"driver,omitempty"`
	PixelFormat string  `json:"pixel format,omitempty"`
	Width       int     `json:"width,omitempty" validate:"gte=0"`
	Height      int     `json:"height,omitempty" validate:"gte=0"`
	FPS         float64 `json:"fps,omitempty" validate:"gte=0"`
	// Brightness in percent.
	Brightness *int `json:"brightness,omitempty" validate:"omitempty,gte=0,lte=100"`
	// WhiteBalance and Exposure are "auto", "hold" or a number.
	WhiteBalance string           `json:"white balance,omitempty"`
	Exposure     string           `json:"exposure,omitempty"`
	Properties   []PropertyConfig `json:"properties,omitempty"`
	// Loop replays the images of the file driver forever.
	Loop bool `json:"loop,omitempty"`
}

// TelemetryConfig locates the key/value table.
type TelemetryConfig struct {
	// Address of the redis server. Empty derives 10.TE.AM.2 from the team number in client
	// mode and the local host in server mode.
	Address       string        `json:"address,omitempty"`
	Password      string        `json:"password,omitempty"`
	DB            int           `json:"db,omitempty" validate:"gte=0"`
	Table         string        `json:"table,omitempty"`
	DialTimeout   time.Duration `json:"dial_timeout,omitempty" validate:"gte=0"`
	RetryInterval time.Duration `json:"retry_interval,omitempty" validate:"gte=0"`
}

// StreamConfig configures the debug MJPEG server.
type StreamConfig struct {
	Disabled bool   `json:"disabled,omitempty"`
	Address  string `json:"address,omitempty"`
	Name     string `json:"name,omitempty"`
	Quality  int    `json:"quality,omitempty" validate:"gte=0,lte=100"`
}

// VisionConfig holds the target geometry and the loop's tuning. Zero values pick defaults.
type VisionConfig struct {
	TapeHeight     float64                `json:"tape_height,omitempty" validate:"gte=0"`
	FocalLength    float64                `json:"focal_length,omitempty" validate:"gte=0"`
	TapeSeparation float64                `json:"tape_separation,omitempty" validate:"gte=0"`
	FieldOfView    float64                `json:"field_of_view,omitempty" validate:"gte=0,lt=180"`
	Baseline       triangulation.Baseline `json:"baseline"`

	MinArea                float64       `json:"min_area,omitempty" validate:"gte=0"`
	MinWidth               int           `json:"min_width,omitempty" validate:"gte=0"`
	LegacyMeanWidthFilter  bool          `json:"legacy_mean_width_filter,omitempty"`
	GapPolicy              string        `json:"gap_policy,omitempty"`
	MaxConsecutiveFailures int           `json:"max_consecutive_failures,omitempty" validate:"gte=0"`
	RetryInterval          time.Duration `json:"retry_interval,omitempty" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `json:"level,omitempty"`
	// File, if set, receives JSON lines in addition to the console.
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" validate:"gte=0"`
	MaxBackups int    `json:"max_backups,omitempty" validate:"gte=0"`
}

// Read reads, completes and validates the config at path. ${VAR} references are replaced from
// the environment first.
func Read(path string) (*Config, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %q", path)
	}
	return FromReader(path, bytes.NewReader(buf))
}

// FromReader is Read for an already opened document; path is only used in errors.
func FromReader(path string, r io.Reader) (*Config, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &ConfigError{Path: path, Reason: "must be JSON object: " + err.Error()}
	}
	for _, key := range []string{"team", "cameras"} {
		if _, ok := raw[key]; !ok {
			return nil, &ConfigError{Path: path, Field: key}
		}
	}

	cfg := &Config{ConfigFilePath: path}
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           cfg,
		Metadata:         &md,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &ConfigError{Path: path, Reason: err.Error()}
	}
	cfg.Unused = md.Unused

	if err := cfg.Validate(path); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Geometry().Validate(); err != nil {
		return nil, &ConfigError{Path: path, Field: "vision", Reason: err.Error()}
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.NTMode == "" {
		c.NTMode = NTClient
	}
	c.NTMode = NTMode(strings.ToLower(string(c.NTMode)))
	for i := range c.Cameras {
		if c.Cameras[i].Driver == "" {
			c.Cameras[i].Driver = DefaultCameraDriver
		}
	}

	t := &c.Telemetry
	if t.Address == "" {
		t.Address = c.defaultTelemetryAddress()
	}
	if t.Table == "" {
		t.Table = DefaultTable
	}
	if t.RetryInterval == 0 {
		t.RetryInterval = telemetry.DefaultRetryInterval
	}

	s := &c.Stream
	if s.Address == "" {
		s.Address = DefaultStreamAddress
	}
	if s.Name == "" {
		s.Name = c.Cameras[0].Name
	}

	v := &c.Vision
	if v.TapeHeight == 0 {
		v.TapeHeight = triangulation.DefaultTapeHeight
	}
	if v.TapeSeparation == 0 {
		v.TapeSeparation = triangulation.DefaultTapeSeparation
	}
	if v.FieldOfView == 0 {
		v.FieldOfView = triangulation.DefaultFieldOfView
	}
	if v.FocalLength == 0 {
		width := c.Cameras[0].Width
		if width <= 0 {
			width = triangulation.DefaultFrameWidth
		}
		v.FocalLength = triangulation.FocalLengthFor(width, v.FieldOfView)
	}
	if v.MinArea == 0 {
		v.MinArea = tape.DefaultMinArea
	}
	if v.GapPolicy == "" {
		v.GapPolicy = string(telemetry.GapOmit)
	}
	if v.MaxConsecutiveFailures == 0 {
		v.MaxConsecutiveFailures = pipeline.DefaultMaxConsecutiveFailures
	}
	if v.RetryInterval == 0 {
		v.RetryInterval = pipeline.DefaultRetryInterval
	}

	l := &c.Log
	if l.Level == "" {
		l.Level = "info"
	}
	if l.MaxSizeMB == 0 {
		l.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if l.MaxBackups == 0 {
		l.MaxBackups = DefaultLogMaxBackups
	}
}

func (c *Config) defaultTelemetryAddress() string {
	if c.NTMode == NTServer {
		return joinHostPort(defaultServerHostname, DefaultRedisPort)
	}
	return joinHostPort(robotAddress(c.Team), DefaultRedisPort)
}

// Camera returns the camera the vision loop reads.
func (c *Config) Camera() camera.Config {
	return c.Cameras[0].Camera()
}

// Geometry returns the solver constants.
func (c *Config) Geometry() triangulation.Geometry {
	return triangulation.Geometry{
		TapeHeight:     c.Vision.TapeHeight,
		FocalLength:    c.Vision.FocalLength,
		TapeSeparation: c.Vision.TapeSeparation,
		FieldOfView:    c.Vision.FieldOfView,
		Baseline:       c.Vision.Baseline,
	}
}

// RunnerOptions returns the vision loop options.
func (c *Config) RunnerOptions() pipeline.RunnerOptions {
	// the policy was checked by Validate.
	policy, _ := telemetry.ParseGapPolicy(c.Vision.GapPolicy)
	return pipeline.RunnerOptions{
		Filters: pipeline.Filters{
			MinArea:         c.Vision.MinArea,
			MinWidth:        c.Vision.MinWidth,
			LegacyMeanWidth: c.Vision.LegacyMeanWidthFilter,
		},
		GapPolicy:              policy,
		MaxConsecutiveFailures: c.Vision.MaxConsecutiveFailures,
		RetryInterval:          c.Vision.RetryInterval,
	}
}

// RedisOptions returns the telemetry table options.
func (c *Config) RedisOptions() telemetry.RedisOptions {
	return telemetry.RedisOptions{
		Address:     c.Telemetry.Address,
		Password:    c.Telemetry.Password,
		DB:          c.Telemetry.DB,
		Table:       c.Telemetry.Table,
		DialTimeout: c.Telemetry.DialTimeout,
	}
}

// StreamOptions returns the debug stream options.
func (c *Config) StreamOptions() stream.Options {
	return stream.Options{Address: c.Stream.Address, Name: c.Stream.Name, Quality: c.Stream.Quality}
}
