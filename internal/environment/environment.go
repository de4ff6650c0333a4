package environment

import (
	"context"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// ConcurrencySerialized advertises that commands must run one at a time.
	ConcurrencySerialized = 0
	// ConcurrencyNotApplicable advertises that the environment cannot execute commands.
	ConcurrencyNotApplicable = -1

	// OSReleasePath is the standard location of the operating system identification file.
	OSReleasePath = "/etc/os-release"

	osReleaseIdentifierKeyConstant = "ID"
	osReleaseNameKeyConstant       = "NAME"
	osReleaseVersionKeyConstant    = "VERSION_ID"
	osReleasePrettyNameKeyConstant = "PRETTY_NAME"
	osReleaseFamilyLinuxConstant   = "linux"
)

// AuditEnvironment is the contract every audit target implements.
type AuditEnvironment interface {
	// Name identifies the environment in diagnostics and errors.
	Name() string

	// Execute runs a command. A command that ran and failed is reported in the result; the error is reserved for
	// invocation, precondition and capability failures.
	Execute(executionContext context.Context, command string, arguments []string, variables ...EnvironmentVariable) (ExecutionResult, error)
	// ExecuteAsUser runs a command as another user.
	ExecuteAsUser(executionContext context.Context, command string, arguments []string, user string, password string) (ExecutionResult, error)

	// FileExists reports whether a file is present. A missing file is not an error.
	FileExists(executionContext context.Context, path string) (bool, error)
	// DirectoryExists reports whether a directory is present. A missing directory is not an error.
	DirectoryExists(executionContext context.Context, path string) (bool, error)

	// ConstructFile returns a handle for path without touching the backend.
	ConstructFile(path string) FileHandle
	// ConstructDirectory returns a handle for path without touching the backend.
	ConstructDirectory(path string) DirectoryHandle
	// ReadFilesAsText reads every file, keyed by its handle.
	ReadFilesAsText(executionContext context.Context, files []FileHandle) (map[FileHandle]string, error)

	// MaxConcurrentExecutions returns ConcurrencySerialized, a positive ceiling or ConcurrencyNotApplicable.
	MaxConcurrentExecutions() int
	// OperatingSystem describes the target operating system as far as it is known.
	OperatingSystem() OperatingSystem

	Debug(format string, arguments ...any)
	Success(format string, arguments ...any)
	Error(format string, arguments ...any)
}

// OperatingSystem identifies the operating system of an environment.
type OperatingSystem struct {
	Family     string `yaml:"family"`
	Identifier string `yaml:"id,omitempty"`
	Name       string `yaml:"name,omitempty"`
	Version    string `yaml:"version,omitempty"`
	PrettyName string `yaml:"pretty_name,omitempty"`
}

// String prefers the pretty name and falls back to the family.
func (operatingSystem OperatingSystem) String() string {
	if len(operatingSystem.PrettyName) > 0 {
		return operatingSystem.PrettyName
	}
	if len(operatingSystem.Name) > 0 {
		return strings.TrimSpace(operatingSystem.Name + " " + operatingSystem.Version)
	}
	return operatingSystem.Family
}

// ParseOSRelease decodes the KEY="value" lines of an os-release file.
func ParseOSRelease(contents string) (OperatingSystem, error) {
	values, parseError := godotenv.Unmarshal(contents)
	if parseError != nil {
		return OperatingSystem{}, parseError
	}
	return OperatingSystem{
		Family:     osReleaseFamilyLinuxConstant,
		Identifier: values[osReleaseIdentifierKeyConstant],
		Name:       values[osReleaseNameKeyConstant],
		Version:    values[osReleaseVersionKeyConstant],
		PrettyName: values[osReleasePrettyNameKeyConstant],
	}, nil
}
