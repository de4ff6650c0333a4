package docker

import (
	"errors"
	"fmt"
	"strings"
)

const (
	containerErrorTemplateConstant        = "%s (container=%s, operation=%s)"
	containerErrorCauseTemplateConstant   = "%s (container=%s, operation=%s): %v"
	containerErrorOutputLimitConstant     = 200
	truncationSuffixConstant              = "..."
	hostNotConfiguredMessageConstant      = "docker environment host not configured"
	containerNotConfiguredMessageConstant = "docker environment container identity not configured"
)

var (
	// ErrHostNotConfigured indicates the environment was constructed without a host environment.
	ErrHostNotConfigured = errors.New(hostNotConfiguredMessageConstant)
	// ErrContainerNotConfigured indicates the environment was constructed without a container identity.
	ErrContainerNotConfigured = errors.New(containerNotConfiguredMessageConstant)
)

// ContainerErrorType classifies failures reported by the container runtime client.
type ContainerErrorType string

// Container runtime failure classes.
const (
	ErrorTypeContainerNotFound ContainerErrorType = "container_not_found"
	ErrorTypeNotRunning        ContainerErrorType = "container_not_running"
	ErrorTypePermissionDenied  ContainerErrorType = "permission_denied"
	ErrorTypeRuntimeNotFound   ContainerErrorType = "runtime_not_found"
	ErrorTypePathNotFound      ContainerErrorType = "path_not_found"
	ErrorTypeUnknown           ContainerErrorType = "unknown"
)

// ContainerError carries the classified runtime output of a failed container operation.
type ContainerError struct {
	Type      ContainerErrorType
	Container string
	Operation string
	Output    string
	Cause     error
}

// Error renders the classification, container and operation.
func (containerError *ContainerError) Error() string {
	description := string(containerError.Type)
	output := truncateOutput(strings.TrimSpace(containerError.Output), containerErrorOutputLimitConstant)
	if len(output) > 0 {
		description = description + ": " + output
	}
	if containerError.Cause == nil {
		return fmt.Sprintf(containerErrorTemplateConstant, description, containerError.Container, containerError.Operation)
	}
	return fmt.Sprintf(containerErrorCauseTemplateConstant, description, containerError.Container, containerError.Operation, containerError.Cause)
}

// truncateOutput keeps at most limit runes so multi-byte characters in runtime output are never split.
func truncateOutput(output string, limit int) string {
	runeCount := 0
	for byteIndex := range output {
		if runeCount == limit {
			return output[:byteIndex] + truncationSuffixConstant
		}
		runeCount++
	}
	return output
}

// Unwrap exposes the cause.
func (containerError *ContainerError) Unwrap() error {
	return containerError.Cause
}

// ClassifyRuntimeOutput maps docker client error output onto a ContainerErrorType.
func ClassifyRuntimeOutput(output string) ContainerErrorType {
	normalized := strings.ToLower(output)
	switch {
	case strings.Contains(normalized, "no such container"):
		return ErrorTypeContainerNotFound
	case strings.Contains(normalized, "is not running"):
		return ErrorTypeNotRunning
	case strings.Contains(normalized, "permission denied"),
		strings.Contains(normalized, "got permission denied while trying to connect"):
		return ErrorTypePermissionDenied
	case strings.Contains(normalized, "executable file not found"),
		strings.Contains(normalized, "command not found"),
		strings.Contains(normalized, "cannot connect to the docker daemon"),
		strings.Contains(normalized, "is the docker daemon running"):
		return ErrorTypeRuntimeNotFound
	case strings.Contains(normalized, "could not find the file"),
		strings.Contains(normalized, "no such file or directory"):
		return ErrorTypePathNotFound
	default:
		return ErrorTypeUnknown
	}
}
