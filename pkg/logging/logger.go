package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

type Options struct {
	Name  string
	Level string

	// SessionLog, when set, receives a copy of every entry. The file is
	// opened in append mode and never truncated.
	SessionLog string

	// Output defaults to stderr.
	Output io.Writer
}

// Logger is the application logger plus the session log it writes to.
type Logger struct {
	hclog.InterceptLogger

	session *os.File
}

// New builds the application logger. JSON output is enabled with
// MCLAUNCH_JSON_LOG=1.
func New(opts Options) (*Logger, error) {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	level := opts.Level
	if level == "" {
		level = GetLogLevel()
	}

	l := &Logger{}
	if opts.SessionLog != "" {
		if err := os.MkdirAll(filepath.Dir(opts.SessionLog), 0755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(opts.SessionLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		l.session = f
		output = io.MultiWriter(output, f)
	}

	l.InterceptLogger = hclog.NewInterceptLogger(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: os.Getenv("MCLAUNCH_JSON_LOG") == "1",
		Output:     output,
		TimeFormat: "2006-01-02 15:04:05",
	})
	return l, nil
}

func (l *Logger) Close() error {
	if l.session == nil {
		return nil
	}
	err := l.session.Close()
	l.session = nil
	return err
}

// GetLogLevel returns the configured log level from environment
func GetLogLevel() string {
	level := os.Getenv("MCLAUNCH_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	return level
}

// Nop is used by components constructed without a logger.
func Nop() hclog.Logger {
	return hclog.NewNullLogger()
}
