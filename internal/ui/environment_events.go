package ui

import (
	"go.uber.org/zap"

	"github.com/temirov/devaudit/internal/environment"
)

const (
	environmentFieldNameConstant = "environment"
	severityFieldNameConstant    = "severity"
)

// EnvironmentEventLogger forwards environment diagnostics to zap. Success events log at info.
type EnvironmentEventLogger struct {
	logger *zap.Logger
}

// NewEnvironmentEventLogger constructs a diagnostic sink backed by the provided zap logger.
func NewEnvironmentEventLogger(logger *zap.Logger) *EnvironmentEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnvironmentEventLogger{logger: logger}
}

// Handle implements environment.MessageHandler.
func (eventLogger *EnvironmentEventLogger) Handle(event environment.Event) {
	if eventLogger == nil {
		return
	}
	fields := []zap.Field{
		zap.String(environmentFieldNameConstant, event.Environment),
		zap.Stringer(severityFieldNameConstant, event.Severity),
	}
	switch event.Severity {
	case environment.SeverityError:
		eventLogger.logger.Error(event.Message, fields...)
	case environment.SeveritySuccess:
		eventLogger.logger.Info(event.Message, fields...)
	default:
		eventLogger.logger.Debug(event.Message, fields...)
	}
}
