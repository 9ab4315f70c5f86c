package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a sugared zap logger; callers use the *w methods with key/value pairs.
type Logger struct {
	*zap.SugaredLogger
}

// unknown levels fall back to debug so a typo never hides output
const fallbackLevel = zapcore.DebugLevel

func parseLevel(level string) zapcore.Level {
	switch normalize(level) {
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return fallbackLevel
	}
}

func encoderFor(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.RFC3339TimeEncoder
	if normalize(format) == FormatJSON {
		ec.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// New builds a logger writing to out, or stdout when out is nil.
func New(cfg Config, out zapcore.WriteSyncer) *Logger {
	if out == nil {
		out = zapcore.AddSync(os.Stdout)
	}
	core := zapcore.NewCore(encoderFor(cfg.Format), zapcore.Lock(out), zap.NewAtomicLevelAt(parseLevel(cfg.Level)))
	return &Logger{SugaredLogger: zap.New(core, zap.AddCaller()).Sugar()}
}

// Nop discards everything; tests and optional loggers use it.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Named tags every entry with the component, e.g. "device" or "http".
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}
