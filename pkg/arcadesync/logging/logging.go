// Package logging provides component loggers with file rotation for the
// arcadesync agent and server.
//
// Basic usage:
//
//	cfg, err := logging.FromSettings(agentCfg.Logging, config.DefaultLogPath("arcadesync"))
//	if err != nil {
//	    return err
//	}
//	if err := logging.Init(cfg); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logger := logging.Get("sync")
//	logger.Info("pass finished", "downloaded", 2)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/config"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) toCharmLevel() log.Level {
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

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty disables the file sink.
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names to their log levels.
	Components map[string]string

	// ConsoleLevel enables stderr output at the given level.
	// Empty disables console output.
	ConsoleLevel string

	// Console overrides stderr as the console destination. Used by tests.
	Console io.Writer
}

// FromSettings converts the logging section of a loaded configuration into
// a Config. An empty path in settings falls back to defaultPath.
func FromSettings(s config.LoggingConfig, defaultPath string) (Config, error) {
	rotation := DefaultRotationConfig()
	if s.Rotation.MaxSize != "" {
		size, err := humanize.ParseBytes(s.Rotation.MaxSize)
		if err != nil {
			return Config{}, fmt.Errorf("parsing rotation max_size %q: %w", s.Rotation.MaxSize, err)
		}
		rotation.MaxSize = int64(size)
	}
	rotation.MaxAge = s.Rotation.MaxAge
	rotation.MaxBackups = s.Rotation.MaxBackups
	rotation.Daily = s.Rotation.Daily

	cfg := Config{
		Level:      s.Level,
		Path:       s.Path,
		Rotation:   rotation,
		Components: s.Components,
	}
	if cfg.Path == "" {
		cfg.Path = defaultPath
	}
	if s.Console {
		cfg.ConsoleLevel = s.Level
	}
	return cfg, nil
}

// Logger wraps charmbracelet/log with component identification.
// It writes to the log file and optionally mirrors to the console.
type Logger struct {
	file      *log.Logger
	console   *log.Logger
	component string
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

// Component returns the component name the logger was created for.
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	logTo(l.file, level, msg, args...)
	if l.console != nil {
		logTo(l.console, level, msg, args...)
	}
}

func logTo(logger *log.Logger, level Level, msg string, args ...interface{}) {
	switch level {
	case LevelDebug:
		logger.Debug(msg, args...)
	case LevelInfo:
		logger.Info(msg, args...)
	case LevelWarn:
		logger.Warn(msg, args...)
	case LevelError:
		logger.Error(msg, args...)
	}
}

// With returns a new logger with additional context, e.g. a pass ID.
func (l *Logger) With(args ...interface{}) *Logger {
	newLogger := &Logger{
		file:      l.file.With(args...),
		component: l.component,
	}
	if l.console != nil {
		newLogger.console = l.console.With(args...)
	}
	return newLogger
}

type state struct {
	mu          sync.RWMutex
	initialized bool
	writer      *RotatingWriter
	level       Level
	components  map[string]Level
	loggers     map[string]*Logger

	consoleEnabled bool
	consoleLevel   Level
	console        io.Writer
}

var globalState = &state{
	loggers:    make(map[string]*Logger),
	components: make(map[string]Level),
}

// Init initializes the logging system with the given configuration.
// Before Init is called, all loggers write to io.Discard.
// Loggers obtained before Init are not rewired; call Get again after Init.
func Init(cfg Config) error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.initialized && globalState.writer != nil {
		if err := globalState.writer.Close(); err != nil {
			return fmt.Errorf("closing existing writer: %w", err)
		}
		globalState.writer = nil
	}
	globalState.loggers = make(map[string]*Logger)
	globalState.components = make(map[string]Level)

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	globalState.level = level

	for comp, lvl := range cfg.Components {
		parsedLevel, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		globalState.components[comp] = parsedLevel
	}

	globalState.consoleEnabled = false
	if cfg.ConsoleLevel != "" {
		consoleLevel, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		globalState.consoleLevel = consoleLevel
		globalState.consoleEnabled = true
		globalState.console = cfg.Console
		if globalState.console == nil {
			globalState.console = os.Stderr
		}
	}

	if cfg.Path != "" {
		writer, err := NewRotatingWriter(cfg.Path, cfg.Rotation)
		if err != nil {
			return fmt.Errorf("creating log writer: %w", err)
		}
		globalState.writer = writer
	}

	globalState.initialized = true
	return nil
}

// Get returns a logger for the given component.
// A per-component level override takes precedence over the default level.
func Get(component string) *Logger {
	globalState.mu.RLock()
	if logger, ok := globalState.loggers[component]; ok {
		globalState.mu.RUnlock()
		return logger
	}
	globalState.mu.RUnlock()

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}

	logger := createLogger(component)
	globalState.loggers[component] = logger
	return logger
}

// createLogger must be called with globalState.mu held.
func createLogger(component string) *Logger {
	level := globalState.level
	if compLevel, ok := globalState.components[component]; ok {
		level = compLevel
	}

	var sink io.Writer = io.Discard
	if globalState.initialized && globalState.writer != nil {
		sink = globalState.writer
	}

	logger := &Logger{
		file: log.NewWithOptions(sink, log.Options{
			Level:           level.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
		component: component,
	}

	if globalState.initialized && globalState.consoleEnabled {
		consoleLevel := globalState.consoleLevel
		if level > consoleLevel {
			consoleLevel = level
		}
		logger.console = log.NewWithOptions(globalState.console, log.Options{
			Level:           consoleLevel.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}

	return logger
}

// Close flushes and closes the log file.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}

	if globalState.writer != nil {
		if err := globalState.writer.Close(); err != nil {
			return fmt.Errorf("closing log writer: %w", err)
		}
		globalState.writer = nil
	}

	globalState.initialized = false
	globalState.consoleEnabled = false
	globalState.loggers = make(map[string]*Logger)
	globalState.components = make(map[string]Level)

	return nil
}
