package log

import (
	"github.com/pingcap/errors"
	pclog "github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config serializes log related config in toml/json.
type Config struct {
	// Log level.
	Level string `toml:"level" json:"level"`
	// Log filename, leave empty to disable file log.
	File string `toml:"file" json:"file"`
	// Log format. one of json, text, or console.
	Format string `toml:"format" json:"format"`
}

// Logger is a simple wrapper around *zap.Logger which provides some extra
// methods to simplify the callers.
type Logger struct {
	*zap.Logger
}

var appLogger = Logger{zap.NewNop()}

// InitAppLogger inits the wrapped logger from the given config.
func InitAppLogger(cfg *Config) (Logger, *pclog.ZapProperties, error) {
	logger, props, err := pclog.InitLogger(&pclog.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		File:   pclog.FileLogConfig{Filename: cfg.File},
	}, zap.AddStacktrace(zap.DPanicLevel))
	if err != nil {
		return appLogger, nil, errors.Trace(err)
	}
	appLogger = Logger{logger.With(zap.String("component", "oradump"))}
	return appLogger, props, nil
}

// NewAppLogger wraps an existing zap logger.
func NewAppLogger(logger *zap.Logger) Logger {
	return Logger{logger}
}

// SetAppLogger replaces the global logger, used by tests and embedders.
func SetAppLogger(logger Logger) {
	appLogger = logger
}

// Zap returns the global logger.
func Zap() Logger {
	return appLogger
}

// With creates a child logger and adds structured context to it.
func (l Logger) With(fields ...zap.Field) Logger {
	return Logger{l.Logger.With(fields...)}
}

// IsDebug reports whether debug logs would be emitted.
func (l Logger) IsDebug() bool {
	return l.Core().Enabled(zapcore.DebugLevel)
}

// Debug logs a message at DebugLevel through the global logger.
func Debug(msg string, fields ...zap.Field) {
	appLogger.Debug(msg, fields...)
}

// Info logs a message at InfoLevel through the global logger.
func Info(msg string, fields ...zap.Field) {
	appLogger.Info(msg, fields...)
}

// Warn logs a message at WarnLevel through the global logger.
func Warn(msg string, fields ...zap.Field) {
	appLogger.Warn(msg, fields...)
}

// Error logs a message at ErrorLevel through the global logger.
func Error(msg string, fields ...zap.Field) {
	appLogger.Error(msg, fields...)
}

// ShortError contructs a field which only records the error message without
// the verbose text (i.e. excludes the stack trace).
func ShortError(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", err.Error())
}
