package local

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/temirov/devaudit/internal/environment"
	"github.com/temirov/devaudit/internal/execshell"
)

const (
	// EnvironmentName identifies the local environment in diagnostics.
	EnvironmentName = "local"
	// DefaultHostRoot is where the host filesystem is mounted when the auditor itself runs in a container.
	DefaultHostRoot = "/hostroot"

	rootPathConstant                      = "/"
	unixLineTerminatorConstant            = "\n"
	windowsLineTerminatorConstant         = "\r\n"
	windowsOperatingSystemConstant        = "windows"
	passwordTerminatorConstant            = "\n"
	sudoNonInteractiveFlagConstant        = "-n"
	sudoStandardInputFlagConstant         = "-S"
	sudoPromptFlagConstant                = "-p"
	sudoEmptyPromptConstant               = ""
	sudoUserFlagConstant                  = "-u"
	sudoShellFlagConstant                 = "-s"
	executeOperationConstant              = "execute"
	executeAsUserOperationConstant        = "execute as user"
	readFileOperationConstant             = "read file"
	listDirectoryOperationConstant        = "list directory"
	writeFileOperationConstant            = "write file"
	writeFailureTemplateConstant          = "Writing %s failed: %v"
	writtenFilePermissionsConstant        = 0o644
	createdDirectoryPermissionsConstant   = 0o755
	executionFailureTemplateConstant      = "Executing %s failed: %v"
	probeTemplateConstant                 = "Probed %s in %dms: exists=%t"
	probeFailureTemplateConstant          = "Probing %s failed: %v"
	readFailureTemplateConstant           = "Reading %s failed: %v"
	listFailureTemplateConstant           = "Listing %s failed: %v"
	osReleaseFallbackTemplateConstant     = "Operating system release unavailable, using %s: %v"
	containerizedDetectedTemplateConstant = "Auditor runs inside a container; host filesystem is addressed under %s"
	emptyCommandMessageConstant           = "command must not be empty"
	executorNotConfiguredMessageConstant  = "local environment command executor not configured"
)

// ErrExecutorNotConfigured indicates the environment was constructed without a command executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// CommandExecutor runs shell commands. execshell.ShellExecutor satisfies it.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Options configures the local environment.
type Options struct {
	// Root anchors relative paths passed to ConstructFile and ConstructDirectory.
	Root string
	// Containerization selects whether the auditor is treated as running inside a container.
	Containerization ContainerizationMode
	// HostRoot is the host filesystem mount used when containerized. Defaults to DefaultHostRoot.
	HostRoot string
	// MessageHandler receives diagnostics.
	MessageHandler environment.MessageHandler
	// Detector overrides container detection in ContainerizationAuto mode.
	Detector ContainerDetector
}

// Environment audits the machine the process runs on.
type Environment struct {
	environment.Reporter
	commandExecutor CommandExecutor
	root            string
	containerized   bool
	hostRoot        string
	operatingSystem environment.OperatingSystem
	lineTerminator  string
}

// NewEnvironment constructs the local environment and resolves its operating system once.
func NewEnvironment(commandExecutor CommandExecutor, options Options) (*Environment, error) {
	if commandExecutor == nil {
		return nil, ErrExecutorNotConfigured
	}

	root := strings.TrimSpace(options.Root)
	if len(root) == 0 {
		root = rootPathConstant
	}
	hostRoot := strings.TrimSpace(options.HostRoot)
	if len(hostRoot) == 0 {
		hostRoot = DefaultHostRoot
	}
	detector := options.Detector
	if detector == nil {
		detector = DetectContainer
	}

	localEnvironment := &Environment{
		Reporter:        environment.NewReporter(EnvironmentName, options.MessageHandler),
		commandExecutor: commandExecutor,
		root:            root,
		containerized:   options.Containerization.Resolve(detector),
		hostRoot:        hostRoot,
		lineTerminator:  unixLineTerminatorConstant,
	}
	if runtime.GOOS == windowsOperatingSystemConstant {
		localEnvironment.lineTerminator = windowsLineTerminatorConstant
	}
	if localEnvironment.containerized {
		localEnvironment.Debug(containerizedDetectedTemplateConstant, hostRoot)
	}
	localEnvironment.operatingSystem = localEnvironment.detectOperatingSystem()
	return localEnvironment, nil
}

// Name identifies the environment.
func (localEnvironment *Environment) Name() string {
	return EnvironmentName
}

// IsContainerized reports whether the auditor runs inside a container.
func (localEnvironment *Environment) IsContainerized() bool {
	return localEnvironment.containerized
}

// HostRoot returns the host filesystem mount used when containerized.
func (localEnvironment *Environment) HostRoot() string {
	return localEnvironment.hostRoot
}

// LineTerminator returns the line separator of command output on this host.
func (localEnvironment *Environment) LineTerminator() string {
	return localEnvironment.lineTerminator
}

// MaxConcurrentExecutions allows one process per CPU.
func (localEnvironment *Environment) MaxConcurrentExecutions() int {
	return runtime.NumCPU()
}

// OperatingSystem returns the operating system resolved at construction.
func (localEnvironment *Environment) OperatingSystem() environment.OperatingSystem {
	return localEnvironment.operatingSystem
}

// Execute spawns a native process. Overrides are applied in order, so a repeated name keeps its last value.
func (localEnvironment *Environment) Execute(executionContext context.Context, command string, arguments []string, variables ...environment.EnvironmentVariable) (environment.ExecutionResult, error) {
	if len(strings.TrimSpace(command)) == 0 {
		return environment.ExecutionResult{}, environment.NewPreconditionFailedError(EnvironmentName, executeOperationConstant, emptyCommandMessageConstant)
	}
	details := execshell.CommandDetails{Arguments: arguments}
	if len(variables) > 0 {
		details.EnvironmentVariables = make(map[string]string, len(variables))
		for _, variable := range variables {
			details.EnvironmentVariables[variable.Name] = variable.Value
		}
	}
	return localEnvironment.run(executionContext, executeOperationConstant, execshell.ShellCommand{Name: execshell.CommandName(command), Details: details})
}

// ExecuteAsUser runs the command through sudo. Without a password sudo must not prompt; with a password it is
// supplied on standard input.
func (localEnvironment *Environment) ExecuteAsUser(executionContext context.Context, command string, arguments []string, user string, password string) (environment.ExecutionResult, error) {
	if len(strings.TrimSpace(command)) == 0 {
		return environment.ExecutionResult{}, environment.NewPreconditionFailedError(EnvironmentName, executeAsUserOperationConstant, emptyCommandMessageConstant)
	}
	details := execshell.CommandDetails{}
	if len(password) == 0 {
		details.Arguments = []string{sudoNonInteractiveFlagConstant, sudoUserFlagConstant, user, sudoShellFlagConstant, command}
	} else {
		details.Arguments = []string{sudoStandardInputFlagConstant, sudoPromptFlagConstant, sudoEmptyPromptConstant, sudoUserFlagConstant, user, sudoShellFlagConstant, command}
		details.StandardInput = []byte(password + passwordTerminatorConstant)
	}
	details.Arguments = append(details.Arguments, arguments...)
	return localEnvironment.run(executionContext, executeAsUserOperationConstant, execshell.ShellCommand{Name: execshell.CommandSudo, Details: details})
}

func (localEnvironment *Environment) run(executionContext context.Context, operation string, command execshell.ShellCommand) (environment.ExecutionResult, error) {
	executionResult, executionError := localEnvironment.commandExecutor.Execute(executionContext, command)
	if executionError == nil {
		return environment.ResultFromExitCode(executionResult.ExitCode, executionResult.StandardOutput, executionResult.StandardError), nil
	}

	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) {
		return environment.ResultFromExitCode(failedError.Result.ExitCode, failedError.Result.StandardOutput, failedError.Result.StandardError), nil
	}

	localEnvironment.Error(executionFailureTemplateConstant, command.Label(), executionError)
	return environment.UnknownResult(executionError), environment.NewInvocationFailedError(EnvironmentName, operation, command.Label(), executionError)
}

// FileExists reports whether path names a non-directory entry on disk.
func (localEnvironment *Environment) FileExists(_ context.Context, filePath string) (bool, error) {
	fileInfo, found := localEnvironment.probe(filePath)
	return found && !fileInfo.IsDir(), nil
}

// DirectoryExists reports whether path names a directory on disk.
func (localEnvironment *Environment) DirectoryExists(_ context.Context, directoryPath string) (bool, error) {
	fileInfo, found := localEnvironment.probe(directoryPath)
	return found && fileInfo.IsDir(), nil
}

func (localEnvironment *Environment) probe(targetPath string) (os.FileInfo, bool) {
	startTime := time.Now()
	fileInfo, statError := os.Stat(localEnvironment.HostPath(targetPath))
	if statError != nil && !errors.Is(statError, os.ErrNotExist) {
		localEnvironment.Debug(probeFailureTemplateConstant, targetPath, statError)
		return nil, false
	}
	found := statError == nil
	localEnvironment.Debug(probeTemplateConstant, targetPath, time.Since(startTime).Milliseconds(), found)
	return fileInfo, found
}

// ConstructFile returns a handle for path resolved against the root.
func (localEnvironment *Environment) ConstructFile(filePath string) environment.FileHandle {
	return environment.NewFile(localEnvironment, localEnvironment.resolve(filePath))
}

// ConstructDirectory returns a handle for path resolved against the root.
func (localEnvironment *Environment) ConstructDirectory(directoryPath string) environment.DirectoryHandle {
	return environment.NewDirectory(localEnvironment, localEnvironment.resolve(directoryPath))
}

// ReadFilesAsText reads every file from disk.
func (localEnvironment *Environment) ReadFilesAsText(executionContext context.Context, files []environment.FileHandle) (map[environment.FileHandle]string, error) {
	return environment.ReadAll(executionContext, files)
}

// ReadFileAsText reads one file from disk.
func (localEnvironment *Environment) ReadFileAsText(_ context.Context, filePath string) (string, error) {
	contents, readError := os.ReadFile(localEnvironment.HostPath(filePath))
	if readError != nil {
		localEnvironment.Error(readFailureTemplateConstant, filePath, readError)
		return "", environment.NewInvocationFailedError(EnvironmentName, readFileOperationConstant, filePath, readError)
	}
	return string(contents), nil
}

// WriteFile stores contents at path, creating missing parent directories.
func (localEnvironment *Environment) WriteFile(_ context.Context, filePath string, contents []byte) error {
	hostPath := localEnvironment.HostPath(filePath)
	if directoryError := os.MkdirAll(filepath.Dir(hostPath), createdDirectoryPermissionsConstant); directoryError != nil {
		localEnvironment.Error(writeFailureTemplateConstant, filePath, directoryError)
		return environment.NewInvocationFailedError(EnvironmentName, writeFileOperationConstant, filePath, directoryError)
	}
	if writeError := os.WriteFile(hostPath, contents, writtenFilePermissionsConstant); writeError != nil {
		localEnvironment.Error(writeFailureTemplateConstant, filePath, writeError)
		return environment.NewInvocationFailedError(EnvironmentName, writeFileOperationConstant, filePath, writeError)
	}
	return nil
}

// ListEntries returns the entries of the requested kind directly inside directoryPath. A missing directory lists
// as empty.
func (localEnvironment *Environment) ListEntries(_ context.Context, directoryPath string, kind environment.EntryKind) ([]string, error) {
	directoryEntries, readError := os.ReadDir(localEnvironment.HostPath(directoryPath))
	if errors.Is(readError, os.ErrNotExist) {
		return nil, nil
	}
	if readError != nil {
		localEnvironment.Error(listFailureTemplateConstant, directoryPath, readError)
		return nil, environment.NewInvocationFailedError(EnvironmentName, listDirectoryOperationConstant, directoryPath, readError)
	}

	entryPaths := make([]string, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() != (kind == environment.EntryKindDirectory) {
			continue
		}
		entryPaths = append(entryPaths, path.Join(directoryPath, directoryEntry.Name()))
	}
	return entryPaths, nil
}

// ResolvePath anchors an audit path at the root as the host itself sees it, without the host root mount prefix.
// Host processes, including those run through chroot into the host root, address the file by this path.
func (localEnvironment *Environment) ResolvePath(auditPath string) string {
	return filepath.FromSlash(localEnvironment.resolve(auditPath))
}

// HostPath maps an audit path onto the local filesystem, prefixing the host root when containerized.
func (localEnvironment *Environment) HostPath(auditPath string) string {
	resolvedPath := localEnvironment.ResolvePath(auditPath)
	if !localEnvironment.containerized {
		return resolvedPath
	}
	return filepath.Join(localEnvironment.hostRoot, resolvedPath)
}

func (localEnvironment *Environment) resolve(targetPath string) string {
	return environment.ResolvePath(filepath.ToSlash(localEnvironment.root), filepath.ToSlash(targetPath))
}

func (localEnvironment *Environment) detectOperatingSystem() environment.OperatingSystem {
	fallback := environment.OperatingSystem{Family: runtime.GOOS}
	contents, readError := os.ReadFile(localEnvironment.HostPath(environment.OSReleasePath))
	if readError != nil {
		localEnvironment.Debug(osReleaseFallbackTemplateConstant, runtime.GOOS, readError)
		return fallback
	}
	operatingSystem, parseError := environment.ParseOSRelease(string(contents))
	if parseError != nil {
		localEnvironment.Debug(osReleaseFallbackTemplateConstant, runtime.GOOS, parseError)
		return fallback
	}
	operatingSystem.Family = runtime.GOOS
	return operatingSystem
}
