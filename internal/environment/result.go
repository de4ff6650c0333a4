package environment

import (
	"fmt"
	"strings"
)

const (
	executionStatusCompletedConstant       = "completed"
	executionStatusErrorConstant           = "error"
	executionStatusUnknownConstant         = "unknown"
	environmentAssignmentTemplateConstant  = "%s=%s"
	environmentAssignmentSeparatorConstant = "="
	invalidAssignmentTemplateConstant      = "environment assignment %q must have the form KEY=VALUE"
)

// ExecutionStatus classifies the outcome of a command.
type ExecutionStatus int

const (
	// StatusUnknown means the invocation did not complete.
	StatusUnknown ExecutionStatus = iota
	// StatusCompleted means the command exited with code zero.
	StatusCompleted
	// StatusError means the command exited with a non-zero code.
	StatusError
)

// String renders the status in lower case.
func (status ExecutionStatus) String() string {
	switch status {
	case StatusCompleted:
		return executionStatusCompletedConstant
	case StatusError:
		return executionStatusErrorConstant
	default:
		return executionStatusUnknownConstant
	}
}

// MarshalText renders the status for YAML and JSON encoders.
func (status ExecutionStatus) MarshalText() ([]byte, error) {
	return []byte(status.String()), nil
}

// ExecutionResult is the value returned for every executed command.
type ExecutionResult struct {
	Status   ExecutionStatus `yaml:"status"`
	Output   string          `yaml:"output"`
	Error    string          `yaml:"error"`
	ExitCode int             `yaml:"exit_code"`
}

// Completed reports whether the command exited with code zero.
func (result ExecutionResult) Completed() bool {
	return result.Status == StatusCompleted
}

// ResultFromExitCode maps a finished process onto the tri-state result.
func ResultFromExitCode(exitCode int, standardOutput string, standardError string) ExecutionResult {
	status := StatusCompleted
	if exitCode != 0 {
		status = StatusError
	}
	return ExecutionResult{Status: status, Output: standardOutput, Error: standardError, ExitCode: exitCode}
}

// UnknownResult describes an invocation that could not complete.
func UnknownResult(failure error) ExecutionResult {
	result := ExecutionResult{Status: StatusUnknown}
	if failure != nil {
		result.Error = failure.Error()
	}
	return result
}

// EnvironmentVariable is one ordered override applied to an executed command.
type EnvironmentVariable struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// String renders the variable as NAME=VALUE.
func (variable EnvironmentVariable) String() string {
	return fmt.Sprintf(environmentAssignmentTemplateConstant, variable.Name, variable.Value)
}

// ParseEnvironmentVariable splits a KEY=VALUE assignment. The value may itself contain '='.
func ParseEnvironmentVariable(assignment string) (EnvironmentVariable, error) {
	name, value, found := strings.Cut(assignment, environmentAssignmentSeparatorConstant)
	name = strings.TrimSpace(name)
	if !found || len(name) == 0 {
		return EnvironmentVariable{}, fmt.Errorf(invalidAssignmentTemplateConstant, assignment)
	}
	return EnvironmentVariable{Name: name, Value: value}, nil
}
