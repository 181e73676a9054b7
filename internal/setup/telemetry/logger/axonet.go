package logger

import (
	"fmt"

	axonetLogger "github.com/jaxron/axonet/pkg/client/logger"
	"go.uber.org/zap"
)

// ZapLogger adapts a zap logger to the logger interface of the HTTP client.
type ZapLogger struct {
	logger *zap.Logger
}

// New wraps zapLogger for use by the HTTP client and its middleware.
func New(zapLogger *zap.Logger) axonetLogger.Logger {
	return &ZapLogger{logger: zapLogger.WithOptions(zap.AddCallerSkip(1))}
}

func (l *ZapLogger) Debug(msg string) { l.logger.Debug(msg) }
func (l *ZapLogger) Info(msg string)  { l.logger.Info(msg) }
func (l *ZapLogger) Warn(msg string)  { l.logger.Warn(msg) }
func (l *ZapLogger) Error(msg string) { l.logger.Error(msg) }

func (l *ZapLogger) Debugf(format string, args ...any) { l.logger.Debug(fmt.Sprintf(format, args...)) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.logger.Info(fmt.Sprintf(format, args...)) }
func (l *ZapLogger) Warnf(format string, args ...any)  { l.logger.Warn(fmt.Sprintf(format, args...)) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.logger.Error(fmt.Sprintf(format, args...)) }

// WithFields returns a logger carrying the given fields.
func (l *ZapLogger) WithFields(fields ...axonetLogger.Field) axonetLogger.Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		zapFields = append(zapFields, zap.Any(f.Key, f.Value))
	}

	return &ZapLogger{logger: l.logger.With(zapFields...)}
}
