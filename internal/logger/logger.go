package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu     sync.Mutex
	logger = newLogger()

	// file is the log file opened by SetOutput, if any
	file *os.File
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) logrus() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(level string) (Level, bool) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

// SetLevel sets the minimum level. Unknown names are ignored.
func SetLevel(level string) {
	l, ok := ParseLevel(level)
	if !ok {
		return
	}
	logger.SetLevel(l.logrus())
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	switch logger.GetLevel() {
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return LevelError
	default:
		return LevelInfo
	}
}

// SetFormat selects "text" or "json" output.
func SetFormat(format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// SetOutput directs logs to "stdout", "stderr" or a file path.
func SetOutput(output string) error {
	mu.Lock()
	defer mu.Unlock()

	var w io.Writer
	var opened *os.File
	switch strings.ToLower(output) {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		w, opened = f, f
	}

	logger.SetOutput(w)
	if file != nil {
		_ = file.Close()
	}
	file = opened
	return nil
}

// SetWriter directs logs to w. Used by tests to capture output.
func SetWriter(w io.Writer) {
	logger.SetOutput(w)
}

func Debug(format string, v ...any) {
	logger.Debugf(format, v...)
}

func Info(format string, v ...any) {
	logger.Infof(format, v...)
}

func Warn(format string, v ...any) {
	logger.Warnf(format, v...)
}

func Error(format string, v ...any) {
	logger.Errorf(format, v...)
}

// With returns an entry carrying structured fields, for callers that log
// several lines about the same request.
func With(fields map[string]any) *logrus.Entry {
	return logger.WithFields(logrus.Fields(fields))
}
