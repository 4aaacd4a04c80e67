package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"charucocalib/internal/config"
)

// Log file names, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// maxLogSizeMB is the size at which a log file is rotated.
var maxLogSizeMB = 16

// Logger provides leveled logging (debug/info/warning/error) to rotating files and stdout/stderr.
type Logger struct {
	sugar  *zap.SugaredLogger
	logDir string
	files  map[string]*lumberjack.Logger
	mu     sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{
		logDir: cfg.LogDirectory,
		files:  make(map[string]*lumberjack.Logger, 3),
	}
	for _, name := range []string{InfoFile, WarningFile, ErrorFile} {
		l.files[name] = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDirectory, name),
			MaxSize:    maxLogSizeMB,
			MaxBackups: 3,
			Compress:   true,
		}
	}

	minLevel := zapcore.InfoLevel
	if cfg.Debug {
		minLevel = zapcore.DebugLevel
	}

	console := zapcore.NewConsoleEncoder(encoderConfig(zapcore.CapitalColorLevelEncoder))
	plain := zapcore.NewConsoleEncoder(encoderConfig(zapcore.CapitalLevelEncoder))

	belowError := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= minLevel && lvl < zapcore.ErrorLevel
	})
	atInfo := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= minLevel && lvl <= zapcore.InfoLevel
	})
	atWarn := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl == zapcore.WarnLevel
	})
	atError := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(console, zapcore.Lock(os.Stdout), belowError),
		zapcore.NewCore(console, zapcore.Lock(os.Stderr), atError),
		zapcore.NewCore(plain, zapcore.AddSync(l.files[InfoFile]), atInfo),
		zapcore.NewCore(plain, zapcore.AddSync(l.files[WarningFile]), atWarn),
		zapcore.NewCore(plain, zapcore.AddSync(l.files[ErrorFile]), atError),
	)
	l.sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	return l, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// encoderConfig follows zap's development config without stacktraces.
func encoderConfig(levels zapcore.LevelEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levels,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// Debug writes a formatted debug-level log entry. Dropped unless debug logging is enabled.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.files[fileName]
	if !ok {
		return fmt.Errorf("unknown log file %q", fileName)
	}
	if err := os.Truncate(filepath.Join(l.logDir, fileName), 0); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear %s: %w", fileName, err)
	}
	// lumberjack tracks the file size itself; reopening makes it read the new size
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to reopen %s: %w", fileName, err)
	}
	return nil
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	// stdout and stderr return EINVAL on sync when attached to a terminal
	_ = l.sugar.Sync()
}

// Close flushes and closes the log files.
func (l *Logger) Close() error {
	l.Sync()

	l.mu.Lock()
	defer l.mu.Unlock()

	var errs error
	for _, f := range l.files {
		errs = multierr.Append(errs, f.Close())
	}
	return errs
}
