package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/temirov/devaudit/internal/environment"
)

const (
	copyFileOperationConstant                  = "copy file"
	copyDirectoryOperationConstant             = "copy directory"
	copyLabelTemplateConstant                  = "docker cp %s:%s %s"
	copyFailedTemplateConstant                 = "%s did not execute successfully: %s"
	copyMissingTemplateConstant                = "%s executed successfully but %s does not exist on the host"
	copySucceededTemplateConstant              = "Copied %s from container %s to %s"
	copyDestinationMissingConstant             = "destination missing after copy"
	copyDestinationProbeFailedTemplateConstant = "destination check failed: %w"
)

// GetFileAsLocal copies a file out of the container with `docker cp` and verifies the destination on the host.
func (dockerEnvironment *Environment) GetFileAsLocal(executionContext context.Context, containerPath string, localPath string) (environment.FileHandle, error) {
	destinationPath, copyError := dockerEnvironment.copyOut(executionContext, copyFileOperationConstant, containerPath, localPath, dockerEnvironment.host.FileExists)
	if copyError != nil {
		return nil, copyError
	}
	return dockerEnvironment.host.ConstructFile(destinationPath), nil
}

// GetDirectoryAsLocal copies a directory tree out of the container with `docker cp` and verifies the destination.
func (dockerEnvironment *Environment) GetDirectoryAsLocal(executionContext context.Context, containerPath string, localPath string) (environment.DirectoryHandle, error) {
	destinationPath, copyError := dockerEnvironment.copyOut(executionContext, copyDirectoryOperationConstant, containerPath, localPath, dockerEnvironment.host.DirectoryExists)
	if copyError != nil {
		return nil, copyError
	}
	return dockerEnvironment.host.ConstructDirectory(destinationPath), nil
}

// copyOut requires only that the container exists; the runtime copies from stopped containers as well. The
// destination is resolved once on the host so the runtime writes exactly the path that is verified afterwards.
func (dockerEnvironment *Environment) copyOut(executionContext context.Context, operation string, containerPath string, localPath string, verify func(context.Context, string) (bool, error)) (string, error) {
	if !dockerEnvironment.status.Exists {
		dockerEnvironment.Error(notFoundTemplateConstant, operation, dockerEnvironment.container)
		return "", environment.NewPreconditionFailedError(dockerEnvironment.Name(), operation, containerNotFoundMessageConstant)
	}

	sourcePath := dockerEnvironment.resolve(containerPath)
	destinationPath := dockerEnvironment.host.ResolvePath(localPath)
	copyLabel := fmt.Sprintf(copyLabelTemplateConstant, dockerEnvironment.container, sourcePath, destinationPath)
	copyArguments := []string{copySubcommandConstant, dockerEnvironment.container + containerPathSeparatorConstant + sourcePath, destinationPath}

	result, executionError := dockerEnvironment.runRuntime(executionContext, copyArguments)
	if executionError != nil {
		dockerEnvironment.Error(copyFailedTemplateConstant, copyLabel, executionError)
		return "", executionError
	}
	if !result.Completed() {
		dockerEnvironment.Error(copyFailedTemplateConstant, copyLabel, strings.TrimSpace(result.Error))
		return "", environment.NewInvocationFailedError(dockerEnvironment.Name(), operation, copyLabel,
			&ContainerError{Type: ClassifyRuntimeOutput(result.Error), Container: dockerEnvironment.container, Operation: operation, Output: result.Error})
	}

	present, verifyError := verify(executionContext, destinationPath)
	if verifyError != nil {
		dockerEnvironment.Error(copyFailedTemplateConstant, copyLabel, verifyError)
		return "", environment.NewInvocationFailedError(dockerEnvironment.Name(), operation, copyLabel, fmt.Errorf(copyDestinationProbeFailedTemplateConstant, verifyError))
	}
	if !present {
		dockerEnvironment.Error(copyMissingTemplateConstant, copyLabel, destinationPath)
		return "", environment.NewInvocationFailedError(dockerEnvironment.Name(), operation, copyLabel,
			&ContainerError{Type: ErrorTypePathNotFound, Container: dockerEnvironment.container, Operation: operation, Output: copyDestinationMissingConstant})
	}
	dockerEnvironment.Debug(copySucceededTemplateConstant, sourcePath, dockerEnvironment.container, destinationPath)
	return destinationPath, nil
}
