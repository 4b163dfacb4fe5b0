package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerOptions controls where application logs are written
type LoggerOptions struct {
	Prefix     string
	Output     string // stdout, file, both
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// NewLogger builds a *log.Logger writing to stdout and/or a rotating file.
// The returned closer releases the file handle and is never nil.
func NewLogger(opts LoggerOptions) (*log.Logger, io.Closer, error) {
	flags := log.LstdFlags | log.Lmicroseconds | log.LUTC
	if opts.Output == "" || opts.Output == "stdout" {
		return log.New(os.Stdout, opts.Prefix, flags), nopCloser{}, nil
	}

	if opts.FilePath == "" {
		return nil, nil, fmt.Errorf("log file path is required for output %q", opts.Output)
	}
	if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   opts.Compress,
	}

	var w io.Writer = rotator
	if opts.Output == "both" {
		w = io.MultiWriter(os.Stdout, rotator)
	}
	return log.New(w, opts.Prefix, flags), rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
