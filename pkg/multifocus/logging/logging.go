// Package logging is the shared logger for the multifocus CLI, console and
// daemon. Loggers are per component and silent until Init is called.
//
//	if err := logging.Init(logging.DefaultConfig()); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logging.Get("engine").Info("sweep complete", "plans", 3)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "unknown"
	}
	return levelNames[l]
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned by ParseLevel for unknown names.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel converts a level name. "warning" is accepted as "warn".
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Config configures Init.
type Config struct {
	// Level is the default level for every component.
	Level string `mapstructure:"level" yaml:"level"`

	// Path of the log file. Empty means DefaultLogPath().
	Path string `mapstructure:"path" yaml:"path"`

	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`

	// Components overrides the level per component, e.g. {"actuator": "debug"}.
	Components map[string]string `mapstructure:"components" yaml:"components,omitempty"`

	// ConsoleLevel mirrors records at or above this level to stderr.
	// Empty disables the mirror.
	ConsoleLevel string `mapstructure:"console_level" yaml:"console_level,omitempty"`

	// Capture keeps recent records in memory for the operator console and
	// turns the stderr mirror off, since the console owns the terminal.
	Capture bool `mapstructure:"-" yaml:"-"`
}

// DefaultConfig logs at info to the default path with default rotation.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}

// DefaultLogPath is $XDG_STATE_HOME/multifocus/multifocus.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "multifocus", "multifocus.log")
}

// Record is a log line as seen by subscribers.
type Record struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
	// Fields holds the key/value pairs passed with the message.
	Fields []any
}

// Logger writes records for one component.
type Logger struct {
	component string
	file      *log.Logger
	stderr    *log.Logger
	fields    []any
}

func (l *Logger) Debug(msg string, kv ...any) { l.emit(LevelDebug, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.emit(LevelInfo, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.emit(LevelWarn, msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.emit(LevelError, msg, kv) }

// With returns a logger that adds kv to every record.
func (l *Logger) With(kv ...any) *Logger {
	child := &Logger{
		component: l.component,
		file:      l.file.With(kv...),
		fields:    append(append([]any(nil), l.fields...), kv...),
	}
	if l.stderr != nil {
		child.stderr = l.stderr.With(kv...)
	}
	return child
}

func (l *Logger) emit(level Level, msg string, kv []any) {
	write(l.file, level, msg, kv)
	if l.stderr != nil {
		write(l.stderr, level, msg, kv)
	}
	fields := kv
	if len(l.fields) > 0 {
		fields = append(append([]any(nil), l.fields...), kv...)
	}
	global.publish(Record{
		Time:      time.Now(),
		Level:     level,
		Component: l.component,
		Message:   msg,
		Fields:    fields,
	})
}

func write(lg *log.Logger, level Level, msg string, kv []any) {
	lg.Log(level.charm(), msg, kv...)
}

type registry struct {
	mu        sync.RWMutex
	active    bool
	out       *RotatingWriter
	level     Level
	overrides map[string]Level
	mirror    bool
	mirrorAt  Level
	history   *History
	loggers   map[string]*Logger
	listeners map[chan Record]struct{}
}

var global = &registry{
	overrides: map[string]Level{},
	loggers:   map[string]*Logger{},
	listeners: map[chan Record]struct{}{},
}

// Init opens the log file and reconfigures every logger handed out so far.
// Calling Init again replaces the previous configuration.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	overrides := make(map[string]Level, len(cfg.Components))
	for comp, name := range cfg.Components {
		lvl, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		overrides[comp] = lvl
	}
	var mirrorAt Level
	mirror := cfg.ConsoleLevel != "" && !cfg.Capture
	if mirror {
		if mirrorAt, err = ParseLevel(cfg.ConsoleLevel); err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	out, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if global.out != nil {
		_ = global.out.Close()
	}
	global.out = out
	global.level = level
	global.overrides = overrides
	global.mirror = mirror
	global.mirrorAt = mirrorAt
	global.history = nil
	if cfg.Capture {
		global.history = NewHistory(DefaultHistorySize)
	}
	global.active = true

	for name := range global.loggers {
		global.loggers[name] = global.build(name)
	}
	return nil
}

// Get returns the logger for component, creating it on first use.
func Get(component string) *Logger {
	global.mu.RLock()
	lg, ok := global.loggers[component]
	global.mu.RUnlock()
	if ok {
		return lg
	}

	global.mu.Lock()
	defer global.mu.Unlock()
	if lg, ok := global.loggers[component]; ok {
		return lg
	}
	lg = global.build(component)
	global.loggers[component] = lg
	return lg
}

// build must be called with mu held.
func (r *registry) build(component string) *Logger {
	level := r.level
	if lvl, ok := r.overrides[component]; ok {
		level = lvl
	}

	if !r.active {
		return &Logger{
			component: component,
			file: log.NewWithOptions(io.Discard, log.Options{
				Level:  level.charm(),
				Prefix: component,
			}),
		}
	}

	lg := &Logger{
		component: component,
		file: log.NewWithOptions(r.out, log.Options{
			Level:           level.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
	}
	if r.mirror {
		lg.stderr = log.NewWithOptions(os.Stderr, log.Options{
			Level:           r.mirrorAt.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          component,
		})
	}
	return lg
}

// Close flushes the log file, closes subscriptions and returns every logger
// to the silent state.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if !global.active {
		return nil
	}
	for ch := range global.listeners {
		close(ch)
		delete(global.listeners, ch)
	}

	var err error
	if global.out != nil {
		err = global.out.Close()
		global.out = nil
	}
	global.active = false
	global.history = nil
	global.overrides = map[string]Level{}
	global.loggers = map[string]*Logger{}
	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// Subscribe streams records as they are logged. Slow readers miss records.
// The returned cancel func removes the subscription.
func Subscribe() (<-chan Record, func()) {
	ch := make(chan Record, 128)

	global.mu.Lock()
	global.listeners[ch] = struct{}{}
	global.mu.Unlock()

	cancel := func() {
		global.mu.Lock()
		delete(global.listeners, ch)
		global.mu.Unlock()
	}
	return ch, cancel
}

// Recent returns the captured history, or nil when Init was not called
// with Capture.
func Recent() *History {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.history
}

func (r *registry) publish(rec Record) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.history != nil {
		r.history.Add(rec)
	}
	for ch := range r.listeners {
		select {
		case ch <- rec:
		default:
		}
	}
}
