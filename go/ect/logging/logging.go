// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package logging sets up the structured loggers of the test driver: a
// human readable console log and an optional rotated JSON log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the name of the log file created in the log directory.
const FileName = "ect.log"

// FileConfig configures the rotation of the log file.
type FileConfig struct {
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

// GetMaxSizeMB returns the max size in MB, defaulting to 50 if not set.
func (c *FileConfig) GetMaxSizeMB() int {
	if c == nil || c.MaxSizeMB <= 0 {
		return 50
	}
	return c.MaxSizeMB
}

// GetMaxAgeDays returns the max age in days, defaulting to 7 if not set.
func (c *FileConfig) GetMaxAgeDays() int {
	if c == nil || c.MaxAgeDays <= 0 {
		return 7
	}
	return c.MaxAgeDays
}

// GetMaxBackups returns the max backups, defaulting to 3 if not set.
func (c *FileConfig) GetMaxBackups() int {
	if c == nil || c.MaxBackups <= 0 {
		return 3
	}
	return c.MaxBackups
}

// New creates a console logger on stderr. Debug messages are only logged
// if debug is set.
func New(debug bool) zerolog.Logger {
	return newLogger(level(debug), consoleWriter(os.Stderr))
}

// NewWithFile creates a logger writing to the console and, if dir is not
// empty, to a rotated JSON log file in the given directory. The returned
// closer releases the log file.
func NewWithFile(debug bool, dir string, cfg *FileConfig) (zerolog.Logger, io.Closer, error) {
	return newWithFile(debug, os.Stderr, dir, cfg)
}

func newWithFile(debug bool, console io.Writer, dir string, cfg *FileConfig) (zerolog.Logger, io.Closer, error) {
	if dir == "" {
		return newLogger(level(debug), consoleWriter(console)), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName),
		MaxSize:    cfg.GetMaxSizeMB(),
		MaxAge:     cfg.GetMaxAgeDays(),
		MaxBackups: cfg.GetMaxBackups(),
		LocalTime:  true,
	}
	// The file receives all levels, the console only the selected ones.
	console = &levelFilter{writer: consoleWriter(console), min: level(debug)}
	log := newLogger(zerolog.DebugLevel, zerolog.MultiLevelWriter(console, file))
	return log, file, nil
}

func level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func consoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
}

func newLogger(level zerolog.Level, output io.Writer) zerolog.Logger {
	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// levelFilter drops messages below a minimum level.
type levelFilter struct {
	writer io.Writer
	min    zerolog.Level
}

func (f *levelFilter) Write(p []byte) (int, error) {
	return f.writer.Write(p)
}

func (f *levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.min {
		return len(p), nil
	}
	return f.writer.Write(p)
}
