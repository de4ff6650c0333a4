package execshell

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	logFieldCommandNameConstant          = "command_name"
	logFieldCommandArgumentsConstant     = "command_arguments"
	logFieldWorkingDirectoryConstant     = "working_directory"
	logFieldEnvironmentVariablesConstant = "environment_variables"
	logFieldExitCodeConstant             = "exit_code"
	logFieldElapsedConstant              = "elapsed"
)

// CommandRunner executes a fully described shell command.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// ShellExecutor runs commands through a CommandRunner, logging and reporting every invocation.
type ShellExecutor struct {
	logger           *zap.Logger
	commandRunner    CommandRunner
	eventObserver    CommandEventObserver
	messageFormatter CommandMessageFormatter
	commandTimeout   time.Duration
}

// NewShellExecutor constructs a ShellExecutor from a logger and a runner.
func NewShellExecutor(logger *zap.Logger, commandRunner CommandRunner) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if commandRunner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{
		logger:           logger,
		commandRunner:    commandRunner,
		eventObserver:    noopCommandEventObserver{},
		messageFormatter: CommandMessageFormatter{},
	}, nil
}

// SetEventObserver registers the observer notified about command lifecycle events.
func (executor *ShellExecutor) SetEventObserver(observer CommandEventObserver) {
	if observer == nil {
		executor.eventObserver = noopCommandEventObserver{}
		return
	}
	executor.eventObserver = observer
}

// SetCommandTimeout bounds every command run by the executor. Zero disables the bound.
func (executor *ShellExecutor) SetCommandTimeout(timeout time.Duration) {
	if timeout < 0 {
		timeout = 0
	}
	executor.commandTimeout = timeout
}

// Execute runs the command. A non-zero exit code is reported as CommandFailedError and a
// runner failure as CommandExecutionError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}
	if executor.commandTimeout > 0 {
		var cancel context.CancelFunc
		executionContext, cancel = context.WithTimeout(executionContext, executor.commandTimeout)
		defer cancel()
	}

	commandFields := executor.commandFields(command)
	executor.eventObserver.CommandStarted(command)
	executor.logger.Debug(executor.messageFormatter.BuildStartedMessage(command), commandFields...)

	startTime := time.Now()
	executionResult, runError := executor.commandRunner.Run(executionContext, command)
	elapsedField := zap.Duration(logFieldElapsedConstant, time.Since(startTime))

	if runError == nil && executionContext.Err() != nil {
		runError = executionContext.Err()
	}

	if runError != nil {
		executionError := CommandExecutionError{Command: command, Cause: runError}
		executor.eventObserver.CommandExecutionFailed(command, executionError)
		executor.logger.Error(executor.messageFormatter.BuildExecutionFailureMessage(command, runError), append(commandFields, elapsedField)...)
		return ExecutionResult{}, executionError
	}

	executor.eventObserver.CommandCompleted(command, executionResult)

	if executionResult.ExitCode != 0 {
		executor.logger.Warn(
			executor.messageFormatter.BuildFailureMessage(command, executionResult),
			append(commandFields, elapsedField, zap.Int(logFieldExitCodeConstant, executionResult.ExitCode))...,
		)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Debug(executor.messageFormatter.BuildSuccessMessage(command), append(commandFields, elapsedField)...)
	return executionResult, nil
}

// ExecuteGitHubCLI runs the GitHub CLI.
func (executor *ShellExecutor) ExecuteGitHubCLI(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGitHub, Details: details})
}

// commandFields never includes standard input or environment variable values since both may carry credentials.
func (executor *ShellExecutor) commandFields(command ShellCommand) []zap.Field {
	fields := []zap.Field{
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Strings(logFieldCommandArgumentsConstant, command.Details.Arguments),
	}
	if len(command.Details.WorkingDirectory) > 0 {
		fields = append(fields, zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory))
	}
	if len(command.Details.EnvironmentVariables) > 0 {
		variableNames := make([]string, 0, len(command.Details.EnvironmentVariables))
		for variableName := range command.Details.EnvironmentVariables {
			variableNames = append(variableNames, variableName)
		}
		fields = append(fields, zap.Strings(logFieldEnvironmentVariablesConstant, variableNames))
	}
	return fields
}
