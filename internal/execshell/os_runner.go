package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"
)

const (
	environmentAssignmentTemplateConstant = "%s=%s"
	executableNotFoundTemplateConstant    = "executable %s not found: %w"
	processWaitDelayConstant              = 2 * time.Second
)

// ExecutableLookup resolves an executable name to a path.
type ExecutableLookup func(file string) (string, error)

// OSCommandRunner executes commands using the operating system facilities.
type OSCommandRunner struct {
	lookupExecutable ExecutableLookup
}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{lookupExecutable: exec.LookPath}
}

// Run executes the supplied command using os/exec. Non-zero exit codes are returned in the
// result; only failures to start or wait for the process are returned as errors.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	lookupExecutable := runner.lookupExecutable
	if lookupExecutable == nil {
		lookupExecutable = exec.LookPath
	}
	executablePath, lookupError := lookupExecutable(string(command.Name))
	if lookupError != nil {
		return ExecutionResult{}, fmt.Errorf(executableNotFoundTemplateConstant, command.Name, lookupError)
	}

	executable := exec.CommandContext(executionContext, executablePath, command.Details.Arguments...)
	executable.WaitDelay = processWaitDelayConstant

	if len(command.Details.WorkingDirectory) > 0 {
		executable.Dir = command.Details.WorkingDirectory
	}

	if len(command.Details.EnvironmentVariables) > 0 {
		executable.Env = mergeEnvironment(os.Environ(), command.Details.EnvironmentVariables)
	}

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	executable.Stdout = &standardOutputBuffer
	executable.Stderr = &standardErrorBuffer

	if len(command.Details.StandardInput) > 0 {
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	runError := executable.Run()
	executionResult := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
	}
	if runError == nil {
		return executionResult, nil
	}

	exitError := &exec.ExitError{}
	if errors.As(runError, &exitError) && executionContext.Err() == nil {
		executionResult.ExitCode = exitError.ExitCode()
		return executionResult, nil
	}
	return ExecutionResult{}, runError
}

// mergeEnvironment appends overrides in a stable order so later assignments win consistently.
func mergeEnvironment(baseEnvironment []string, overrides map[string]string) []string {
	overrideNames := make([]string, 0, len(overrides))
	for overrideName := range overrides {
		overrideNames = append(overrideNames, overrideName)
	}
	sort.Strings(overrideNames)

	mergedEnvironment := append([]string{}, baseEnvironment...)
	for _, overrideName := range overrideNames {
		mergedEnvironment = append(mergedEnvironment, fmt.Sprintf(environmentAssignmentTemplateConstant, overrideName, overrides[overrideName]))
	}
	return mergedEnvironment
}
