// Package log builds the logger of a session. The terminal is in raw mode while a session runs, so records either go
// to a dated file or nowhere.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ErrEmptyDir is returned when writing logs without a directory to write them to
var ErrEmptyDir = errors.New("log directory path is empty")

// Options configure Setup
type Options struct {
	// Write enables the log file. Without it every record is discarded
	Write bool
	Dir   string
	JSON  bool
	Level string

	// Now names the log file. This defaults to time.Now
	Now func() time.Time
}

// Setup returns a logger writing to <dir>/<date>.log on fs. The returned closer releases the file
func Setup(fs afero.Fs, options Options) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	if !options.Write {
		logger.SetOutput(io.Discard)
		return logger, io.NopCloser(nil), nil
	}

	if options.Dir == "" {
		return nil, nil, ErrEmptyDir
	}

	if err := fs.MkdirAll(options.Dir, os.ModePerm); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	now := options.Now
	if now == nil {
		now = time.Now
	}

	path := filepath.Join(options.Dir, fmt.Sprintf("%s.log", now().Format("2006-01-02")))
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger.SetOutput(f)
	if options.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(options.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	return logger, f, nil
}
