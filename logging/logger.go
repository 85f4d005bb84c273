package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with automatic sensitive-value redaction and the
// gateway's console+file output setup.
//
// Example:
//
//	logger, err := NewLogger(true, "gateway.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("server started", zap.Int("port", 5000))
type Logger struct {
	zap           *zap.Logger
	sugar         *zap.SugaredLogger
	isDevelopment bool
	logFilePath   string
}

// NewLogger creates a Logger for the given environment.
//
// Development mode uses colored console output at debug level; production
// uses JSON at info level. The LOG_LEVEL environment variable overrides the
// mode-derived level. Output goes to both stdout and a rotating log file.
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	defaultLevel := zapcore.InfoLevel
	if isDevelopment {
		defaultLevel = zapcore.DebugLevel
	}
	level := ParseLogLevel("LOG_LEVEL", defaultLevel)

	core := NewMultiCore(level, logFilePath, isDevelopment)

	zapLogger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1), // skip this wrapper layer
	)

	return &Logger{
		zap:           zapLogger,
		sugar:         zapLogger.Sugar(),
		isDevelopment: isDevelopment,
		logFilePath:   logFilePath,
	}, nil
}

// NewTestLogger returns a Logger that discards all output. For tests.
func NewTestLogger() *Logger {
	nop := zap.NewNop()
	return &Logger{zap: nop, sugar: nop.Sugar()}
}

// Zap returns the underlying zap.Logger for components that take one
// directly. Fields passed to it bypass redaction, so callers must not log
// raw credentials through it.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// Sync flushes buffered log entries. Call before process exit.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Debug logs at DebugLevel with sensitive string fields redacted.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, l.redactFields(fields)...)
}

// Info logs at InfoLevel with sensitive string fields redacted.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, l.redactFields(fields)...)
}

// Warn logs at WarnLevel with sensitive string fields redacted.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, l.redactFields(fields)...)
}

// Error logs at ErrorLevel with sensitive string fields redacted.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, l.redactFields(fields)...)
}

// Fatal logs at FatalLevel and exits the process.
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, l.redactFields(fields)...)
}

// Infow logs at InfoLevel with loosely typed key-value pairs.
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, l.redactPairs(keysAndValues)...)
}

// Errorw logs at ErrorLevel with loosely typed key-value pairs.
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, l.redactPairs(keysAndValues)...)
}

// redactFields applies sensitive-value redaction to string fields.
func (l *Logger) redactFields(fields []zap.Field) []zap.Field {
	for i, f := range fields {
		if f.Type == zapcore.StringType {
			fields[i] = zap.String(f.Key, RedactField(f.Key, f.String))
		}
	}
	return fields
}

// redactPairs applies redaction to string values in sugared key-value pairs.
func (l *Logger) redactPairs(keysAndValues []interface{}) []interface{} {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, keyOK := keysAndValues[i].(string)
		value, valueOK := keysAndValues[i+1].(string)
		if keyOK && valueOK {
			keysAndValues[i+1] = RedactField(key, value)
		}
	}
	return keysAndValues
}
