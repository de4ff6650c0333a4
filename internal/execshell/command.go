package execshell

import (
	"errors"
	"fmt"
	"strings"
)

const (
	commandDockerStringConstant               = "docker"
	commandGitHubStringConstant               = "gh"
	commandChrootStringConstant               = "chroot"
	commandSudoStringConstant                 = "sudo"
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandFailedTemplateConstant             = "%s exited with code %d%s"
	commandExecutionFailedTemplateConstant    = "%s could not be executed: %s"
)

// CommandName identifies the executable invoked by a ShellCommand.
type CommandName string

// Executables used by the audit environments.
const (
	CommandDocker CommandName = CommandName(commandDockerStringConstant)
	CommandGitHub CommandName = CommandName(commandGitHubStringConstant)
	CommandChroot CommandName = CommandName(commandChrootStringConstant)
	CommandSudo   CommandName = CommandName(commandSudoStringConstant)
)

// CommandDetails describes the arguments and process settings for an invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand combines an executable name with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable results of executing a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// Label renders the command and its arguments on one line.
func (command ShellCommand) Label() string {
	commandParts := []string{string(command.Name)}
	commandParts = append(commandParts, command.Details.Arguments...)
	return strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
}

var (
	// ErrLoggerNotConfigured indicates the executor was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates the executor was constructed without a runner.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a command that ran and returned a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failed command.
func (failedError CommandFailedError) Error() string {
	standardErrorSuffix := CommandMessageFormatter{}.formatStandardErrorSuffix(failedError.Result.StandardError)
	return fmt.Sprintf(commandFailedTemplateConstant, failedError.Command.Label(), failedError.Result.ExitCode, standardErrorSuffix)
}

// CommandExecutionError reports a command that could not be run at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionFailedTemplateConstant, executionError.Command.Label(), CommandMessageFormatter{}.describeFailure(executionError.Cause))
}

// Unwrap exposes the underlying cause.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}
