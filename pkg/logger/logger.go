// Package logger wraps logrus with a lumberjack-rotated file sink whose name
// carries the start of the current cycle interval; CheckAndRotate switches
// to a new file when it is called after that interval has rolled over.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Logger *logrus.Logger

	currentLogFile string
	baseLogFile    string
	savedConfig    Config
	currentPeriod  int64

	logMu sync.Mutex
)

// Config controls logger construction and rotation.
type Config struct {
	Level         string
	OutputFile    string
	MaxSize       int
	MaxBackups    int
	MaxAge        int
	Compress      bool
	RotateByCycle bool
	CycleInterval time.Duration
}

func getCurrentPeriod(interval time.Duration) int64 {
	if interval <= 0 {
		interval = time.Hour
	}
	return time.Now().Truncate(interval).Unix()
}

func getLogFileName(basePath string, period int64) string {
	dir := filepath.Dir(basePath)
	baseName := filepath.Base(basePath)
	ext := filepath.Ext(baseName)
	nameWithoutExt := baseName[:len(baseName)-len(ext)]
	periodStr := time.Unix(period, 0).UTC().Format("2006-01-02_15-04")

	if dir == "." || dir == "" {
		return fmt.Sprintf("%s_%s%s", nameWithoutExt, periodStr, ext)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", nameWithoutExt, periodStr, ext))
}

func textFormatter() *logrus.TextFormatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "06-01-02 15:04:05",
	}
}

// Init sets up the global Logger and, if OutputFile is set, a rotating file
// sink alongside stdout.
func Init(config Config) error {
	logMu.Lock()
	defer logMu.Unlock()

	logger := logrus.New()
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(textFormatter())

	writers := []io.Writer{os.Stdout}

	if config.OutputFile != "" {
		baseLogFile = config.OutputFile
		savedConfig = config

		logFilePath := config.OutputFile
		if config.RotateByCycle {
			period := getCurrentPeriod(config.CycleInterval)
			currentPeriod = period
			logFilePath = getLogFileName(config.OutputFile, period)
		}

		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
			return err
		}

		writers = append(writers, &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		})
		currentLogFile = logFilePath
	}

	multi := io.MultiWriter(writers...)
	logger.SetOutput(multi)
	logrus.SetOutput(multi)
	logrus.SetLevel(level)
	logrus.SetFormatter(textFormatter())

	Logger = logger
	return nil
}

// CheckAndRotate switches the active log file if the cycle interval has
// rolled over since the last rotation. Call this once per cycle.
func CheckAndRotate(config Config) error {
	if !config.RotateByCycle {
		return nil
	}

	logMu.Lock()
	defer logMu.Unlock()

	basePath := config.OutputFile
	if basePath == "" {
		basePath = baseLogFile
	}
	if basePath == "" {
		return nil
	}

	merged := savedConfig
	if config.Level != "" {
		merged.Level = config.Level
	}
	if config.CycleInterval > 0 {
		merged.CycleInterval = config.CycleInterval
	}

	period := getCurrentPeriod(merged.CycleInterval)
	if period == currentPeriod {
		return nil
	}
	currentPeriod = period

	logFilePath := getLogFileName(basePath, period)
	if logFilePath == currentLogFile {
		return nil
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(merged.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(textFormatter())

	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return err
	}

	writers := []io.Writer{os.Stdout, &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    merged.MaxSize,
		MaxBackups: merged.MaxBackups,
		MaxAge:     merged.MaxAge,
		Compress:   merged.Compress,
	}}
	currentLogFile = logFilePath

	multi := io.MultiWriter(writers...)
	logger.SetOutput(multi)
	logrus.SetOutput(multi)
	logrus.SetLevel(level)
	logrus.SetFormatter(textFormatter())

	Logger = logger
	Logger.Infof("log file rotated to %s", logFilePath)
	return nil
}

// InitDefault wires a sane default: info level, rotate hourly, keep a week.
func InitDefault() error {
	return Init(Config{
		Level:         "info",
		OutputFile:    "logs/engine.log",
		MaxSize:       100,
		MaxBackups:    3,
		MaxAge:        7,
		Compress:      true,
		RotateByCycle: true,
		CycleInterval: time.Hour,
	})
}

func Debug(args ...interface{}) {
	if Logger != nil {
		Logger.Debug(args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

func Info(args ...interface{}) {
	if Logger != nil {
		Logger.Info(args...)
	}
}

func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Infof(format, args...)
	}
}

func Warn(args ...interface{}) {
	if Logger != nil {
		Logger.Warn(args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Warnf(format, args...)
	}
}

func Error(args ...interface{}) {
	if Logger != nil {
		Logger.Error(args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Errorf(format, args...)
	}
}

func WithField(key string, value interface{}) *logrus.Entry {
	if Logger != nil {
		return Logger.WithField(key, value)
	}
	return logrus.NewEntry(logrus.New())
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	if Logger != nil {
		return Logger.WithFields(fields)
	}
	return logrus.NewEntry(logrus.New())
}

func GetCurrentLogFile() string {
	logMu.Lock()
	defer logMu.Unlock()
	return currentLogFile
}
