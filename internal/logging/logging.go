// Package logging builds the logrus logger shared by the controller and CLI.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger settings.
type Config struct {
	Level      string `json:"level,omitempty" yaml:"level,omitempty"` // debug, info, warn, error, off
	File       string `json:"file,omitempty" yaml:"file,omitempty"`   // optional rotated log file
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty" yaml:"max_age_days,omitempty"`
}

// New creates a logger writing to stderr, and to a rotated file when
// cfg.File is set. Level "off" or "none" discards everything.
func New(cfg Config) *logrus.Logger {
	return build(cfg, true)
}

// NewFileOnly is New without stderr, for when a full-screen UI owns the
// terminal. Without cfg.File everything is discarded.
func NewFileOnly(cfg Config) *logrus.Logger {
	return build(cfg, false)
}

func build(cfg Config, console bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level := strings.ToLower(strings.TrimSpace(cfg.Level))
	if level == "off" || level == "none" || (!console && cfg.File == "") {
		logger.SetOutput(io.Discard)
		return logger
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	var writers []io.Writer
	if console {
		writers = append(writers, os.Stderr)
	}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 7),
		})
	}
	if len(writers) == 1 {
		logger.SetOutput(writers[0])
	} else {
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return logger
}

// Discard returns a logger that drops all output.
func Discard() *logrus.Logger {
	return New(Config{Level: "off"})
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
