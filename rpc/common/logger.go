package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// output is shared by all eKV loggers. Log lines go to stderr so that the
// stdout of client commands stays clean.
var output = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)

// SetLogOutput redirects the output of all eKV loggers
func SetLogOutput(w io.Writer) {
	output.SetOutput(w)
}

// levelLabels maps the dragonboat levels to the fixed width labels of a line
var levelLabels = map[logger.LogLevel]string{
	logger.CRITICAL: "CRIT",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN",
	logger.INFO:     "INFO",
	logger.DEBUG:    "DEBUG",
}

// eKVLogger writes "<label> | <package> | <message>" lines. The level may be
// changed while other goroutines log.
type eKVLogger struct {
	name  string
	level atomic.Int32
}

func (l *eKVLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *eKVLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *eKVLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *eKVLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *eKVLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

// Panicf logs regardless of the level and panics
func (l *eKVLogger) Panicf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, message)
	panic(message)
}

func (l *eKVLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *eKVLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if l.enabled(level) {
		l.write(level, fmt.Sprintf(format, args...))
	}
}

func (l *eKVLogger) write(level logger.LogLevel, message string) {
	_ = output.Output(3, fmt.Sprintf("%-5s | %-9s | %s", levelLabels[level], l.name, message))
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements the dragonboat logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	l := &eKVLogger{name: pkgName}
	l.SetLevel(logger.INFO)
	return l
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

var factoryOnce sync.Once

// loggerNames lists every named logger used in eKV
var loggerNames = []string{
	"poll",
	"transport",
	"rpc",
	"store",
	"client",
}

// InitLoggers installs the custom format and sets the level of all eKV loggers
func InitLoggers(logLevel string) error {
	level, err := ParseLogLevel(logLevel)
	if err != nil {
		return err
	}

	// Set as the global logger factory
	factoryOnce.Do(func() { logger.SetLoggerFactory(CreateLogger) })

	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}
