package utils

import (
	"context"

	"github.com/temirov/devaudit/internal/environment"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	auditEnvironmentContextKeyConstant      = commandContextKey("auditEnvironment")
)

type commandContextKey string

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	return context.WithValue(ensureContext(parentContext), configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, available := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	return configurationFilePath, available
}

// WithAuditEnvironment attaches the environment selected for the command.
func (accessor CommandContextAccessor) WithAuditEnvironment(parentContext context.Context, auditEnvironment environment.AuditEnvironment) context.Context {
	return context.WithValue(ensureContext(parentContext), auditEnvironmentContextKeyConstant, auditEnvironment)
}

// AuditEnvironment extracts the environment selected for the command.
func (accessor CommandContextAccessor) AuditEnvironment(executionContext context.Context) (environment.AuditEnvironment, bool) {
	if executionContext == nil {
		return nil, false
	}
	auditEnvironment, available := executionContext.Value(auditEnvironmentContextKeyConstant).(environment.AuditEnvironment)
	return auditEnvironment, available && auditEnvironment != nil
}

func ensureContext(parentContext context.Context) context.Context {
	if parentContext == nil {
		return context.Background()
	}
	return parentContext
}
