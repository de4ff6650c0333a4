package docker

import (
	"context"
	"strings"
	"time"

	"github.com/temirov/devaudit/internal/environment"
)

const (
	environmentNamePrefixConstant = "docker:"
	rootPathConstant              = "/"
	linuxFamilyConstant           = "linux"

	statCommandConstant = "stat"
	listCommandConstant = "ls"
	catCommandConstant  = "cat"
	findCommandConstant = "find"
	sudoCommandConstant = "sudo"

	findMinimumDepthFlagConstant = "-mindepth"
	findMaximumDepthFlagConstant = "-maxdepth"
	findDepthConstant            = "1"
	findTypeFlagConstant         = "-type"
	findTypeFileConstant         = "f"
	findTypeDirectoryConstant    = "d"

	sudoNonInteractiveFlagConstant = "-n"
	sudoUserFlagConstant           = "-u"
	sudoShellFlagConstant          = "-s"

	containerStatusOperationConstant = "container status"
	executeOperationConstant         = "execute"
	executeAsUserOperationConstant   = "execute as user"
	fileExistsOperationConstant      = "file exists"
	directoryExistsOperationConstant = "directory exists"
	readFileOperationConstant        = "read file"

	containerNotRunningMessageConstant = "container not running"
	containerNotFoundMessageConstant   = "container not found"
	passwordUnsupportedMessageConstant = "running a command as another user with a password is not supported in a container"

	containerFoundTemplateConstant         = "Found container %s"
	containerRunningTemplateConstant       = "Container %s is running"
	containerStoppedTemplateConstant       = "Container %s exists but is not running"
	containerMissingTemplateConstant       = "Container %s does not exist"
	containerStatusFailureTemplateConstant = "Could not get status of container %s: %v"
	notRunningTemplateConstant             = "Cannot %s in container %s: container not running"
	notFoundTemplateConstant               = "Cannot %s in container %s: container not found"
	probeTemplateConstant                  = "%s %s in container %s took %dms: exists=%t output=%s"
	passwordUnsupportedTemplateConstant    = "Cannot run %s as user %s in container %s: passwords are not supported"
	readFailureTemplateConstant            = "Could not read %s in container %s: %s"
	listMissingTemplateConstant            = "Listing %s in container %s returned no entries: %s"
	osReleaseUnavailableTemplateConstant   = "Could not determine the operating system of container %s: %s"
)

// Host is the environment the container runtime client runs on.
type Host interface {
	environment.AuditEnvironment
	IsContainerized() bool
	HostRoot() string
	LineTerminator() string
	// ResolvePath returns the absolute path host processes use for an audit path on the host.
	ResolvePath(auditPath string) string
}

// Options configures the docker environment.
type Options struct {
	// Container is the container id or name.
	Container string
	// Root anchors relative paths inside the container.
	Root string
	// MessageHandler receives diagnostics.
	MessageHandler environment.MessageHandler
}

// Environment audits a container by proxying every operation through the container runtime client on the host.
// Whether the container exists and runs is resolved once at construction.
type Environment struct {
	environment.Reporter
	host            Host
	container       string
	root            string
	status          ContainerStatus
	operatingSystem environment.OperatingSystem
}

// NewEnvironment resolves the container status. An unknown container yields a usable value that refuses every
// operation; the failure is reported through the host environment.
func NewEnvironment(executionContext context.Context, host Host, options Options) (*Environment, error) {
	if host == nil {
		return nil, ErrHostNotConfigured
	}
	container := strings.TrimSpace(options.Container)
	if len(container) == 0 {
		return nil, ErrContainerNotConfigured
	}
	root := strings.TrimSpace(options.Root)
	if len(root) == 0 {
		root = rootPathConstant
	}

	dockerEnvironment := &Environment{
		Reporter:        environment.NewReporter(environmentNamePrefixConstant+container, options.MessageHandler),
		host:            host,
		container:       container,
		root:            root,
		operatingSystem: environment.OperatingSystem{Family: linuxFamilyConstant},
	}

	status, statusError := dockerEnvironment.GetContainerStatus(executionContext)
	if statusError != nil {
		host.Error(containerStatusFailureTemplateConstant, container, statusError)
		return dockerEnvironment, nil
	}
	dockerEnvironment.status = status
	if !status.Exists {
		host.Error(containerMissingTemplateConstant, container)
		return dockerEnvironment, nil
	}

	dockerEnvironment.Success(containerFoundTemplateConstant, container)
	if !status.Running {
		dockerEnvironment.Debug(containerStoppedTemplateConstant, container)
		return dockerEnvironment, nil
	}
	dockerEnvironment.Success(containerRunningTemplateConstant, container)
	dockerEnvironment.operatingSystem = dockerEnvironment.detectOperatingSystem(executionContext)
	return dockerEnvironment, nil
}

// Name identifies the environment.
func (dockerEnvironment *Environment) Name() string {
	return environmentNamePrefixConstant + dockerEnvironment.container
}

// Container returns the container identity.
func (dockerEnvironment *Environment) Container() string {
	return dockerEnvironment.container
}

// ContainerExists reports whether the identity matched a container at construction.
func (dockerEnvironment *Environment) ContainerExists() bool {
	return dockerEnvironment.status.Exists
}

// ContainerRunning reports whether the matched container was running at construction.
func (dockerEnvironment *Environment) ContainerRunning() bool {
	return dockerEnvironment.status.Running
}

// MaxConcurrentExecutions serializes commands.
func (dockerEnvironment *Environment) MaxConcurrentExecutions() int {
	return environment.ConcurrencySerialized
}

// OperatingSystem returns the operating system read from the container at construction.
func (dockerEnvironment *Environment) OperatingSystem() environment.OperatingSystem {
	return dockerEnvironment.operatingSystem
}

// GetContainerStatus lists every container on the host and matches the identity against the listing.
func (dockerEnvironment *Environment) GetContainerStatus(executionContext context.Context) (ContainerStatus, error) {
	result, executionError := dockerEnvironment.runRuntime(executionContext, []string{listSubcommandConstant, listAllFlagConstant})
	if executionError != nil {
		return ContainerStatus{}, executionError
	}
	if !result.Completed() {
		return ContainerStatus{}, environment.NewInvocationFailedError(dockerEnvironment.Name(), containerStatusOperationConstant, result.Error,
			&ContainerError{Type: ClassifyRuntimeOutput(result.Error), Container: dockerEnvironment.container, Operation: containerStatusOperationConstant, Output: result.Error})
	}
	return ParseContainerStatus(result.Output, dockerEnvironment.host.LineTerminator(), dockerEnvironment.container), nil
}

// Execute runs a command inside the running container.
func (dockerEnvironment *Environment) Execute(executionContext context.Context, command string, arguments []string, variables ...environment.EnvironmentVariable) (environment.ExecutionResult, error) {
	if readinessError := dockerEnvironment.requireRunning(executeOperationConstant); readinessError != nil {
		return environment.ExecutionResult{}, readinessError
	}
	return dockerEnvironment.runRuntime(executionContext, BuildExecArguments(dockerEnvironment.container, command, arguments, variables))
}

// ExecuteAsUser runs the command through non-interactive sudo. Passwords cannot be supplied.
func (dockerEnvironment *Environment) ExecuteAsUser(executionContext context.Context, command string, arguments []string, user string, password string) (environment.ExecutionResult, error) {
	if len(password) > 0 {
		dockerEnvironment.Error(passwordUnsupportedTemplateConstant, command, user, dockerEnvironment.container)
		return environment.ExecutionResult{}, environment.NewUnsupportedOperationError(dockerEnvironment.Name(), executeAsUserOperationConstant, passwordUnsupportedMessageConstant)
	}
	sudoArguments := []string{sudoNonInteractiveFlagConstant, sudoUserFlagConstant, user, sudoShellFlagConstant, command}
	return dockerEnvironment.Execute(executionContext, sudoCommandConstant, append(sudoArguments, arguments...))
}

// ExecuteCommandInContainer passes arguments straight to `docker exec`.
func (dockerEnvironment *Environment) ExecuteCommandInContainer(executionContext context.Context, arguments []string) (environment.ExecutionResult, error) {
	if readinessError := dockerEnvironment.requireRunning(executeOperationConstant); readinessError != nil {
		return environment.ExecutionResult{}, readinessError
	}
	return dockerEnvironment.runRuntime(executionContext, append([]string{execSubcommandConstant}, arguments...))
}

// FileExists probes the path with `ls`.
func (dockerEnvironment *Environment) FileExists(executionContext context.Context, filePath string) (bool, error) {
	return dockerEnvironment.probe(executionContext, fileExistsOperationConstant, listCommandConstant, filePath)
}

// DirectoryExists probes the path with `stat`.
func (dockerEnvironment *Environment) DirectoryExists(executionContext context.Context, directoryPath string) (bool, error) {
	return dockerEnvironment.probe(executionContext, directoryExistsOperationConstant, statCommandConstant, directoryPath)
}

// probe reports existence iff the probe command ran and completed. A failed invocation counts as absent.
func (dockerEnvironment *Environment) probe(executionContext context.Context, operation string, probeCommand string, targetPath string) (bool, error) {
	if readinessError := dockerEnvironment.requireRunning(operation); readinessError != nil {
		return false, readinessError
	}
	resolvedPath := dockerEnvironment.resolve(targetPath)
	startTime := time.Now()
	result, executionError := dockerEnvironment.Execute(executionContext, probeCommand, []string{resolvedPath})
	exists := executionError == nil && result.Completed()
	output := result.Output
	if !exists {
		output = result.Error
	}
	dockerEnvironment.Debug(probeTemplateConstant, probeCommand, resolvedPath, dockerEnvironment.container, time.Since(startTime).Milliseconds(), exists, strings.TrimSpace(output))
	return exists, nil
}

// ConstructFile returns a handle for path resolved against the container root.
func (dockerEnvironment *Environment) ConstructFile(filePath string) environment.FileHandle {
	return environment.NewFile(dockerEnvironment, dockerEnvironment.resolve(filePath))
}

// ConstructDirectory returns a handle for path resolved against the container root.
func (dockerEnvironment *Environment) ConstructDirectory(directoryPath string) environment.DirectoryHandle {
	return environment.NewDirectory(dockerEnvironment, dockerEnvironment.resolve(directoryPath))
}

// ReadFilesAsText runs one `cat` per file.
func (dockerEnvironment *Environment) ReadFilesAsText(executionContext context.Context, files []environment.FileHandle) (map[environment.FileHandle]string, error) {
	return environment.ReadAll(executionContext, files)
}

// ReadFileAsText returns the output of `cat` for the file.
func (dockerEnvironment *Environment) ReadFileAsText(executionContext context.Context, filePath string) (string, error) {
	resolvedPath := dockerEnvironment.resolve(filePath)
	result, executionError := dockerEnvironment.Execute(executionContext, catCommandConstant, []string{resolvedPath})
	if executionError != nil {
		return "", executionError
	}
	if !result.Completed() {
		dockerEnvironment.Error(readFailureTemplateConstant, resolvedPath, dockerEnvironment.container, strings.TrimSpace(result.Error))
		return "", environment.NewInvocationFailedError(dockerEnvironment.Name(), readFileOperationConstant, resolvedPath,
			&ContainerError{Type: ClassifyRuntimeOutput(result.Error), Container: dockerEnvironment.container, Operation: readFileOperationConstant, Output: result.Error})
	}
	return result.Output, nil
}

// ListEntries runs `find` one level deep. A directory find cannot read lists as empty.
func (dockerEnvironment *Environment) ListEntries(executionContext context.Context, directoryPath string, kind environment.EntryKind) ([]string, error) {
	resolvedPath := dockerEnvironment.resolve(directoryPath)
	findType := findTypeFileConstant
	if kind == environment.EntryKindDirectory {
		findType = findTypeDirectoryConstant
	}
	findArguments := []string{resolvedPath, findMinimumDepthFlagConstant, findDepthConstant, findMaximumDepthFlagConstant, findDepthConstant, findTypeFlagConstant, findType}
	result, executionError := dockerEnvironment.Execute(executionContext, findCommandConstant, findArguments)
	if executionError != nil {
		return nil, executionError
	}
	if !result.Completed() {
		dockerEnvironment.Debug(listMissingTemplateConstant, resolvedPath, dockerEnvironment.container, strings.TrimSpace(result.Error))
		return nil, nil
	}

	rows := splitRows(result.Output, dockerEnvironment.host.LineTerminator())
	entryPaths := make([]string, 0, len(rows))
	for _, row := range rows {
		trimmedRow := strings.TrimSpace(row)
		if len(trimmedRow) > 0 {
			entryPaths = append(entryPaths, trimmedRow)
		}
	}
	return entryPaths, nil
}

func (dockerEnvironment *Environment) requireRunning(operation string) error {
	if !dockerEnvironment.status.Exists {
		dockerEnvironment.Error(notFoundTemplateConstant, operation, dockerEnvironment.container)
		return environment.NewPreconditionFailedError(dockerEnvironment.Name(), operation, containerNotFoundMessageConstant)
	}
	if !dockerEnvironment.status.Running {
		dockerEnvironment.Error(notRunningTemplateConstant, operation, dockerEnvironment.container)
		return environment.NewPreconditionFailedError(dockerEnvironment.Name(), operation, containerNotRunningMessageConstant)
	}
	return nil
}

func (dockerEnvironment *Environment) runRuntime(executionContext context.Context, runtimeArguments []string) (environment.ExecutionResult, error) {
	command, arguments := RuntimeInvocation(dockerEnvironment.host.IsContainerized(), dockerEnvironment.host.HostRoot(), runtimeArguments)
	return dockerEnvironment.host.Execute(executionContext, command, arguments)
}

func (dockerEnvironment *Environment) resolve(targetPath string) string {
	return environment.ResolvePath(dockerEnvironment.root, targetPath)
}

func (dockerEnvironment *Environment) detectOperatingSystem(executionContext context.Context) environment.OperatingSystem {
	fallback := environment.OperatingSystem{Family: linuxFamilyConstant}
	result, executionError := dockerEnvironment.Execute(executionContext, catCommandConstant, []string{environment.OSReleasePath})
	if executionError != nil || !result.Completed() {
		dockerEnvironment.Debug(osReleaseUnavailableTemplateConstant, dockerEnvironment.container, strings.TrimSpace(result.Error))
		return fallback
	}
	operatingSystem, parseError := environment.ParseOSRelease(result.Output)
	if parseError != nil {
		dockerEnvironment.Debug(osReleaseUnavailableTemplateConstant, dockerEnvironment.container, parseError.Error())
		return fallback
	}
	return operatingSystem
}
