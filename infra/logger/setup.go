package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines where and how verbosely the daemon logs.
type Config struct {
	// Level filters the console output: CRITICAL, ERROR, WARNING, INFO,
	// DEBUG or NOTSET. The file and syslog outputs always receive debug.
	Level string `json:"level"`
	// File is the rotating log file.
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	// Syslog forwards every record to the local syslog daemon.
	Syslog bool `json:"syslog"`
	// Format of the console output: "console" (coloured) or "json".
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = "INFO"
	}
	if c.File == "" {
		c.File = DefaultLogFile()
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 100
	}
	if c.Format == "" {
		c.Format = "console"
	}
}

// Validate checks the level and format names.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	if c.Format != "console" && c.Format != "json" {
		return fmt.Errorf("unknown log format %s", c.Format)
	}
	return nil
}

// DefaultLogFile returns log/pub_sense.log under the user's home directory,
// falling back to the working directory.
func DefaultLogFile() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE")
	}
	if home == "" {
		home, _ = os.Getwd()
	}
	return filepath.Join(home, "log", "pub_sense.log")
}

var levels = map[string]zerolog.Level{
	"CRITICAL": zerolog.FatalLevel,
	"ERROR":    zerolog.ErrorLevel,
	"WARNING":  zerolog.WarnLevel,
	"INFO":     zerolog.InfoLevel,
	"DEBUG":    zerolog.DebugLevel,
	"NOTSET":   zerolog.TraceLevel,
}

// ParseLevel maps a level name, case insensitive, to a zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	l, ok := levels[strings.ToUpper(name)]
	if !ok {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %s", name)
	}
	return l, nil
}

// Build creates the root logger. Console records go to stdout filtered at
// cfg.Level; the rotating file and syslog receive everything from debug up.
// The returned closer releases the file and syslog handles.
func Build(cfg Config, stdout io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	var console io.Writer = stdout
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	}
	writers := []io.Writer{
		&zerolog.FilteredLevelWriter{Writer: zerolog.LevelWriterAdapter{Writer: console}, Level: level},
	}
	var closers closerList
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		writers = append(writers, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: file},
			Level:  zerolog.DebugLevel,
		})
		closers = append(closers, file)
	}
	if cfg.Syslog {
		sw, closer, err := newSyslogWriter("pub_sense")
		if err != nil {
			_ = closers.Close()
			return zerolog.Nop(), nil, fmt.Errorf("syslog: %w", err)
		}
		writers = append(writers, &zerolog.FilteredLevelWriter{Writer: sw, Level: zerolog.DebugLevel})
		closers = append(closers, closer)
	}
	root := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(minLevel(level, zerolog.DebugLevel)).
		With().Timestamp().Logger()
	return root, closers, nil
}

func minLevel(a, b zerolog.Level) zerolog.Level {
	if a < b {
		return a
	}
	return b
}

type closerList []io.Closer

func (c closerList) Close() error {
	var errs []error
	for _, cl := range c {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
