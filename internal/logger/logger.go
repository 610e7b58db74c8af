package logger

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config is the configuration of the process logger.
type Config struct {
	Level string
	Color bool
	// File receives log output when set; "-" means stderr.
	File string
}

// DefaultConfig returns the default configuration of logger.
func DefaultConfig() Config {
	return Config{Level: "info", Color: true, File: "-"}
}

// Validate reports an unknown level.
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return errors.Wrap(err, "log level")
	}
	return nil
}

// Setup configures logrus globally and returns a closer for the output,
// which is a no-op for stderr.
func Setup(c Config) (io.Closer, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", c.Level)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   c.Color,
		DisableColors: !c.Color,
	})

	switch c.File {
	case "", "-":
		logrus.SetOutput(os.Stderr)
		return nopCloser{}, nil
	default:
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "opening log file %s", c.File)
		}
		logrus.SetOutput(f)
		return f, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
