// Package logging provides the leveled console/file logger used by every
// component.
//
// The console side is an hclog InterceptLogger; the log file is an hclog
// sink writing through a size-rotated lumberjack file. The file always
// receives DEBUG lines, the console only when verbose.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/backmassage/convert-videos/internal/config"
	"github.com/backmassage/convert-videos/internal/term"
)

// TimeFormat is shared by the console and the file sink.
const TimeFormat = "2006-01-02 15:04:05"

// Rotation limits for the log file.
const (
	maxLogSizeMB  = 10
	maxLogBackups = 5
)

// Logger provides leveled, optionally colored logging with a rotating file sink.
type Logger struct {
	hc   hclog.InterceptLogger
	file io.Closer
	path string
}

// New initializes colors from cfg, logs to console and opens the log file
// (cfg.LogFile, or the default in the temp directory). Call Close when done.
func New(cfg *config.Config, console io.Writer) (*Logger, error) {
	level := hclog.Info
	if cfg.Verbose {
		level = hclog.Debug
	}
	hc := hclog.NewInterceptLogger(&hclog.LoggerOptions{
		Name:       "convert-videos",
		Level:      level,
		Output:     console,
		Color:      term.Configure(cfg.ColorMode),
		TimeFormat: TimeFormat,
	})
	l := &Logger{hc: hc}

	path := cfg.LogFile
	if path == "" {
		path = config.DefaultLogFile()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}
	// lumberjack opens lazily; probe writability now so a bad path fails at startup.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}
	_ = f.Close()

	rot := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
	}
	hc.RegisterSink(hclog.NewSinkAdapter(&hclog.LoggerOptions{
		Level:      hclog.Debug,
		Output:     rot,
		Color:      hclog.ColorOff,
		TimeFormat: TimeFormat,
	}))
	l.file = rot
	l.path = path
	return l, nil
}

// Discard returns a logger that writes nowhere. Used by tests.
func Discard() *Logger {
	return &Logger{hc: hclog.NewInterceptLogger(&hclog.LoggerOptions{Output: io.Discard})}
}

// Path returns the log file path ("" for Discard loggers).
func (l *Logger) Path() string { return l.path }

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Named returns a child logger whose lines carry name as a prefix.
func (l *Logger) Named(name string) *Logger {
	return &Logger{hc: l.hc.NamedIntercept(name), path: l.path}
}

// With returns a child logger that appends key/value pairs to every line.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{hc: l.hc.With(args...).(hclog.InterceptLogger), path: l.path}
}

// Hclog exposes the underlying logger for libraries that take an hclog.Logger.
func (l *Logger) Hclog() hclog.Logger { return l.hc }

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.hc.Info(fmt.Sprintf(format, args...))
}

// Success logs at INFO level tagged result=ok.
func (l *Logger) Success(format string, args ...interface{}) {
	l.hc.Info(fmt.Sprintf(format, args...), "result", "ok")
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.hc.Warn(fmt.Sprintf(format, args...))
}

// Error logs at ERROR level.
func (l *Logger) Error(format string, args ...interface{}) {
	l.hc.Error(fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level. The console shows it only when verbose; the
// file always does.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.hc.Debug(fmt.Sprintf(format, args...))
}

// Fields logs msg at level with structured key/value pairs.
func (l *Logger) Fields(level hclog.Level, msg string, args ...interface{}) {
	l.hc.Log(level, msg, args...)
}
