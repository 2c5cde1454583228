package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/jamesainslie/multifocus/pkg/multifocus/actuator"
	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
	"github.com/jamesainslie/multifocus/pkg/multifocus/frames"
	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
	"github.com/jamesainslie/multifocus/pkg/multifocus/simulate"
	"github.com/jamesainslie/multifocus/pkg/multifocus/sweep"
)

// Source kinds.
const (
	SourceSimulate = "simulate"
	SourceDir      = "dir"
)

// GeometryConfig is the sweep shape.
type GeometryConfig struct {
	Steps    int `mapstructure:"steps"`
	StepSize int `mapstructure:"step_size"`
	PreRoll  int `mapstructure:"pre_roll"`
}

// CalibrationConfig configures latency measurement.
type CalibrationConfig struct {
	SettleFrames int     `mapstructure:"settle_frames"`
	JumpPosition int     `mapstructure:"jump_position"`
	Threshold    float64 `mapstructure:"threshold"`
	Timeout      int     `mapstructure:"timeout"`
}

// EngineConfig holds the initial engine parameters.
type EngineConfig struct {
	Work               bool              `mapstructure:"work"`
	AutoStart          bool              `mapstructure:"auto_start"`
	AutoDetectPlans    bool              `mapstructure:"auto_detect_plans"`
	NumberOfPlans      int               `mapstructure:"number_of_plans"`
	Latency            int               `mapstructure:"latency"`
	WaitAfterStart     int               `mapstructure:"wait_after_start"`
	SpaceBetweenSwitch int               `mapstructure:"space_between_switch"`
	ROI1X              int               `mapstructure:"roi1x"`
	ROI1Y              int               `mapstructure:"roi1y"`
	ROI2X              int               `mapstructure:"roi2x"`
	ROI2Y              int               `mapstructure:"roi2y"`
	Plans              string            `mapstructure:"plans"`
	Sweep              GeometryConfig    `mapstructure:"sweep"`
	Calibration        CalibrationConfig `mapstructure:"calibration"`
}

// DirConfig configures the image directory source.
type DirConfig struct {
	Path    string  `mapstructure:"path"`
	Pattern string  `mapstructure:"pattern"`
	FPS     float64 `mapstructure:"fps"`
	Loop    bool    `mapstructure:"loop"`
	Follow  bool    `mapstructure:"follow"`
}

// SimulateConfig configures the simulated lens and camera.
type SimulateConfig struct {
	Width   int              `mapstructure:"width"`
	Height  int              `mapstructure:"height"`
	FPS     float64          `mapstructure:"fps"`
	Frames  uint64           `mapstructure:"frames"`
	Latency int              `mapstructure:"latency"`
	Planes  []simulate.Plane `mapstructure:"planes"`
}

// SourceConfig selects where frames come from.
type SourceConfig struct {
	Kind     string         `mapstructure:"kind"`
	Dir      DirConfig      `mapstructure:"dir"`
	Simulate SimulateConfig `mapstructure:"simulate"`
}

// SharpnessConfig selects the focus metric.
type SharpnessConfig struct {
	Metric string `mapstructure:"metric"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level"`
	Path         string            `mapstructure:"path"`
	ConsoleLevel string            `mapstructure:"console_level"`
	Rotation     RotationConfig    `mapstructure:"rotation"`
	Components   map[string]string `mapstructure:"components"`
}

// DaemonConfig configures the background daemon.
type DaemonConfig struct {
	AutoStart  bool   `mapstructure:"auto_start"`
	BinaryPath string `mapstructure:"binary_path"` // path to multifocusd, discovered if empty
	SocketPath string `mapstructure:"socket_path"`
	PIDPath    string `mapstructure:"pid_path"`
}

// StoreConfig configures the plan and scan history database.
type StoreConfig struct {
	Path      string `mapstructure:"path"`
	KeepScans int    `mapstructure:"keep_scans"`
}

// Config represents the application configuration.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Actuator  actuator.Config `mapstructure:"actuator"`
	Source    SourceConfig    `mapstructure:"source"`
	Sharpness SharpnessConfig `mapstructure:"sharpness"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
	Store     StoreConfig     `mapstructure:"store"`

	v  *viper.Viper
	mu sync.Mutex
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/multifocus/config.yaml
//   - $HOME/.config/multifocus/config.yaml
//
// Environment variables are prefixed with MULTIFOCUS_ (e.g., MULTIFOCUS_ENGINE_LATENCY).
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, appName))
		}

		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", appName))
	}

	v.SetEnvPrefix("MULTIFOCUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{v: v}
	if err := cfg.unmarshal(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) unmarshal() error {
	if err := c.v.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// File returns the config file in use, or "" when running on defaults.
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// AllSettings returns the merged settings from defaults, file and
// environment as a nested map keyed like the config file.
func (c *Config) AllSettings() map[string]any {
	if c.v == nil {
		return map[string]any{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v.AllSettings()
}

func setDefaults(v *viper.Viper) {
	p := engine.DefaultParams()
	v.SetDefault("engine.work", p.Work)
	v.SetDefault("engine.auto_start", p.AutoStart)
	v.SetDefault("engine.auto_detect_plans", p.AutoDetectPlans)
	v.SetDefault("engine.number_of_plans", p.NumberOfPlans)
	v.SetDefault("engine.latency", p.Latency)
	v.SetDefault("engine.wait_after_start", p.WaitAfterStart)
	v.SetDefault("engine.space_between_switch", p.SpaceBetweenSwitch)
	v.SetDefault("engine.roi1x", p.ROI1X)
	v.SetDefault("engine.roi1y", p.ROI1Y)
	v.SetDefault("engine.roi2x", p.ROI2X)
	v.SetDefault("engine.roi2y", p.ROI2Y)
	v.SetDefault("engine.plans", "")
	v.SetDefault("engine.sweep.steps", p.Geometry.Steps)
	v.SetDefault("engine.sweep.step_size", p.Geometry.StepSize)
	v.SetDefault("engine.sweep.pre_roll", p.Geometry.PreRoll)
	v.SetDefault("engine.calibration.settle_frames", p.Calibration.SettleFrames)
	v.SetDefault("engine.calibration.jump_position", p.Calibration.JumpPosition)
	v.SetDefault("engine.calibration.threshold", p.Calibration.Threshold)
	v.SetDefault("engine.calibration.timeout", p.Calibration.Timeout)

	v.SetDefault("actuator.driver", DefaultActuatorDriver)
	v.SetDefault("actuator.device", "")
	v.SetDefault("actuator.address", DefaultI2CAddress)
	v.SetDefault("actuator.min_position", actuator.DefaultMinPosition)
	v.SetDefault("actuator.max_position", actuator.DefaultMaxPosition)
	v.SetDefault("actuator.serial.baud_rate", DefaultBaudRate)
	v.SetDefault("actuator.serial.data_bits", 8)
	v.SetDefault("actuator.serial.stop_bits", 1)
	v.SetDefault("actuator.serial.parity", "N")

	v.SetDefault("source.kind", SourceSimulate)
	v.SetDefault("source.dir.path", "")
	v.SetDefault("source.dir.pattern", frames.DefaultPattern)
	v.SetDefault("source.dir.fps", DefaultFPS)
	v.SetDefault("source.dir.loop", false)
	v.SetDefault("source.dir.follow", false)
	v.SetDefault("source.simulate.width", DefaultFrameWidth)
	v.SetDefault("source.simulate.height", DefaultFrameHeight)
	v.SetDefault("source.simulate.fps", DefaultFPS)
	v.SetDefault("source.simulate.frames", 0)
	v.SetDefault("source.simulate.latency", p.Latency)
	planes := make([]map[string]any, 0, len(simulate.DefaultPlanes()))
	for _, pl := range simulate.DefaultPlanes() {
		planes = append(planes, map[string]any{
			"position": pl.Position,
			"peak":     pl.Peak,
			"width":    pl.Width,
		})
	}
	v.SetDefault("source.simulate.planes", planes)

	v.SetDefault("sharpness.metric", DefaultMetric)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", DefaultLogPath())
	v.SetDefault("logging.console_level", "")
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", DefaultLogMaxAge)
	v.SetDefault("logging.rotation.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.rotation.daily", true)

	v.SetDefault("daemon.auto_start", true)
	v.SetDefault("daemon.binary_path", "")
	v.SetDefault("daemon.socket_path", DefaultSocketPath())
	v.SetDefault("daemon.pid_path", DefaultPIDPath())

	v.SetDefault("store.path", DefaultDBPath())
	v.SetDefault("store.keep_scans", DefaultKeepScans)
}

// Params converts the engine section into engine parameters.
func (e EngineConfig) Params() engine.Params {
	return engine.Params{
		Work:               e.Work,
		AutoStart:          e.AutoStart,
		AutoDetectPlans:    e.AutoDetectPlans,
		NumberOfPlans:      e.NumberOfPlans,
		Latency:            e.Latency,
		WaitAfterStart:     e.WaitAfterStart,
		SpaceBetweenSwitch: e.SpaceBetweenSwitch,
		ROI1X:              e.ROI1X,
		ROI1Y:              e.ROI1Y,
		ROI2X:              e.ROI2X,
		ROI2Y:              e.ROI2Y,
		Geometry: sweep.Geometry{
			Steps:    e.Sweep.Steps,
			StepSize: e.Sweep.StepSize,
			PreRoll:  e.Sweep.PreRoll,
		},
		Calibration: engine.CalibrationParams{
			SettleFrames: e.Calibration.SettleFrames,
			JumpPosition: e.Calibration.JumpPosition,
			Threshold:    e.Calibration.Threshold,
			Timeout:      e.Calibration.Timeout,
		},
	}
}

// Changes lists the runtime parameters that differ from prev, keyed by
// engine parameter name. Geometry and calibration only apply at start-up.
func (e EngineConfig) Changes(prev EngineConfig) map[string]any {
	out := make(map[string]any)
	add := func(key string, cur, old any) {
		if cur != old {
			out[key] = cur
		}
	}
	add(engine.KeyWork, e.Work, prev.Work)
	add(engine.KeyAutoStart, e.AutoStart, prev.AutoStart)
	add(engine.KeyAutoDetectPlans, e.AutoDetectPlans, prev.AutoDetectPlans)
	add(engine.KeyNumberOfPlans, e.NumberOfPlans, prev.NumberOfPlans)
	add(engine.KeyLatency, e.Latency, prev.Latency)
	add(engine.KeyWaitAfterStart, e.WaitAfterStart, prev.WaitAfterStart)
	add(engine.KeySpaceBetweenSwitch, e.SpaceBetweenSwitch, prev.SpaceBetweenSwitch)
	add(engine.KeyROI1X, e.ROI1X, prev.ROI1X)
	add(engine.KeyROI1Y, e.ROI1Y, prev.ROI1Y)
	add(engine.KeyROI2X, e.ROI2X, prev.ROI2X)
	add(engine.KeyROI2Y, e.ROI2Y, prev.ROI2Y)
	add(engine.KeyPlans, e.Plans, prev.Plans)
	return out
}

// Logging converts the logging section, parsing human sizes like "10MB".
func (l LoggingConfig) Logging() (logging.Config, error) {
	out := logging.Config{
		Level:        l.Level,
		Path:         l.Path,
		ConsoleLevel: l.ConsoleLevel,
		Components:   l.Components,
		Rotation: logging.RotationConfig{
			MaxAge:     l.Rotation.MaxAge,
			MaxBackups: l.Rotation.MaxBackups,
			Daily:      l.Rotation.Daily,
		},
	}
	if l.Rotation.MaxSize != "" {
		n, err := humanize.ParseBytes(l.Rotation.MaxSize)
		if err != nil {
			return out, fmt.Errorf("invalid logging.rotation.max_size %q: %w", l.Rotation.MaxSize, err)
		}
		out.Rotation.MaxSize = int64(n)
	}
	return out, nil
}

// Options converts the directory source section.
func (d DirConfig) Options() (frames.DirOptions, error) {
	path, err := ExpandPath(d.Path)
	if err != nil {
		return frames.DirOptions{}, err
	}
	return frames.DirOptions{
		Dir:     path,
		Pattern: d.Pattern,
		FPS:     d.FPS,
		Loop:    d.Loop,
		Follow:  d.Follow,
	}, nil
}

// Camera converts the simulated camera section.
func (s SimulateConfig) Camera() simulate.CameraOptions {
	return simulate.CameraOptions{
		Width:  s.Width,
		Height: s.Height,
		FPS:    s.FPS,
		Frames: s.Frames,
	}
}

// Watch reloads the config file when it changes and calls fn with the
// previous and the new engine section. It does nothing without a file.
func (c *Config) Watch(fn func(prev, next EngineConfig)) {
	if c.File() == "" {
		return
	}
	c.v.OnConfigChange(func(fsnotify.Event) {
		c.mu.Lock()
		prev := c.Engine
		err := c.unmarshal()
		next := c.Engine
		c.mu.Unlock()
		if err != nil {
			logging.Get("config").Warn("reload failed", "file", c.File(), "error", err)
			return
		}
		logging.Get("config").Info("config reloaded", "file", c.File())
		fn(prev, next)
	})
	c.v.WatchConfig()
}

// Apply pushes changed runtime parameters into settings.
func Apply(settings *engine.Settings, prev, next EngineConfig) error {
	var errs []error
	for key, val := range next.Changes(prev) {
		if err := settings.Set(key, val); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", appName), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a commented default configuration file and returns
// its path. An existing file is left alone.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

// DataDir returns the XDG data directory for multifocus.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// StateDir returns the XDG state directory for multifocus.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// DefaultSocketPath returns the daemon's unix socket.
func DefaultSocketPath() string {
	return filepath.Join(DataDir(), appName+".sock")
}

// DefaultPIDPath returns the daemon's PID file.
func DefaultPIDPath() string {
	return filepath.Join(DataDir(), appName+".pid")
}

// DefaultDBPath returns the plan and history database directory.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "store")
}

// DefaultLogPath returns the log file path.
func DefaultLogPath() string {
	return logging.DefaultLogPath()
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}
