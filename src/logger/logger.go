package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	base     = newBase()
	baseMu   sync.Mutex
	logFile  *os.File
	levelMap = map[string]logrus.Level{
		"DEBUG":    logrus.DebugLevel,
		"INFO":     logrus.InfoLevel,
		"WARNING":  logrus.WarnLevel,
		"WARN":     logrus.WarnLevel,
		"ERROR":    logrus.ErrorLevel,
		"CRITICAL": logrus.FatalLevel,
	}
)

// -----------------------------------------------------------------------------

// Logger provides named, leveled logging for one component
type Logger struct {
	name   string
	entry  *logrus.Entry
	config interface{}
}

// -----------------------------------------------------------------------------

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// -----------------------------------------------------------------------------

// Configure sets the level shared by every Logger and optionally tees output
// into logPath.
func Configure(level string, logPath string) error {
	baseMu.Lock()
	defer baseMu.Unlock()

	if lvl, ok := levelMap[strings.ToUpper(strings.TrimSpace(level))]; ok {
		base.SetLevel(lvl)
	}

	if logPath == "" {
		return nil
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	base.SetOutput(io.MultiWriter(os.Stdout, f))
	return nil
}

// SetOutput redirects all loggers, mainly for tests.
func SetOutput(w io.Writer) {
	baseMu.Lock()
	defer baseMu.Unlock()
	base.SetOutput(w)
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance
func NewLogger(config interface{}, name string) *Logger {
	return &Logger{
		name:   name,
		entry:  base.WithField("component", name),
		config: config,
	}
}

// Name returns the component name
func (l *Logger) Name() string {
	return l.name
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}
