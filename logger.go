package session

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	log *zap.SugaredLogger
}

// NewLogger returns a Logger writing console records at level and above to w.
func NewLogger(w io.Writer, level zapcore.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return FromZap(zap.New(core).Named("session"))
}

// FromZap wraps an existing zap logger.
func FromZap(l *zap.Logger) Logger {
	if l == nil {
		return defLogger()
	}
	return &zapLogger{log: l.Sugar()}
}

func (l *zapLogger) Debug(msg string, args ...any) { l.log.Debugw(msg, args...) }
func (l *zapLogger) Info(msg string, args ...any)  { l.log.Infow(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...any)  { l.log.Warnw(msg, args...) }
func (l *zapLogger) Error(msg string, args ...any) { l.log.Errorw(msg, args...) }

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NopLogger discards everything.
func NopLogger() Logger {
	return noopLogger{}
}

func defLogger() Logger {
	return NewLogger(os.Stderr, zapcore.InfoLevel)
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger()
	}
	return l
}
