package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/devaudit/internal/environment"
)

const (
	execCommandUseConstant     = "exec [flags] <command> [arguments...]"
	execCommandShortConstant   = "Run a command in the audit environment"
	existsCommandUseConstant   = "exists <path>..."
	existsCommandShortConstant = "Report whether files or directories exist"
	readCommandUseConstant     = "read <path>..."
	readCommandShortConstant   = "Print the contents of files"
	listCommandUseConstant     = "list <directory>"
	listCommandShortConstant   = "List files or directories matching a pattern"
	statusCommandUseConstant   = "status"
	statusCommandShortConstant = "Describe the audit environment"
	copyCommandUseConstant     = "copy <remote-path> <local-path>"
	copyCommandShortConstant   = "Copy a file or directory from the audit environment to this machine"

	envFlagNameConstant              = "env"
	envFlagUsageConstant             = "Environment override KEY=VALUE; repeat for several, applied in order"
	userFlagNameConstant             = "user"
	userFlagUsageConstant            = "Run the command as this user"
	passwordStdinFlagNameConstant    = "password-stdin"
	passwordStdinFlagUsageConstant   = "Read the password for --user from standard input"
	directoryFlagNameConstant        = "directory"
	existsDirectoryFlagUsageConstant = "Probe directories instead of files"
	copyDirectoryFlagUsageConstant   = "Copy a directory tree instead of a file"
	patternFlagNameConstant          = "pattern"
	patternFlagUsageConstant         = "Glob matched against entry names"
	defaultPatternConstant           = "*"
	directoriesFlagNameConstant      = "directories"
	directoriesFlagUsageConstant     = "List directories instead of files"

	readHeaderTemplateConstant        = "==> %s <=="
	commandFailedTemplateConstant     = "%s finished with status %s (exit code %d)"
	pathsMissingTemplateConstant      = "not found: %s"
	copyUnsupportedTemplateConstant   = "%s cannot copy %s to the local machine"
	userEnvironmentConflictConstant   = "--env cannot be combined with --user"
	passwordWithoutUserConstant       = "--password-stdin requires --user"
	passwordReadErrorTemplateConstant = "unable to read password: %w"
	pathListSeparatorConstant         = ", "
	copyKindFileConstant              = "files"
	copyKindDirectoryConstant         = "directories"

	auditCommandAnnotationConstant      = "devaudit/environment"
	auditCommandAnnotationValueConstant = "required"

	statusEnvironmentKeyConstant = "environment"
	statusBackendKeyConstant     = "backend"
	statusReadyKeyConstant       = "ready"
	statusSystemKeyConstant      = "operating_system"
	statusConcurrencyKeyConstant = "max_concurrent_executions"
)

// readinessReporter is implemented by environments whose targets can be unavailable.
type readinessReporter interface {
	ContainerRunning() bool
}

// repositoryReadinessReporter is implemented by repository environments.
type repositoryReadinessReporter interface {
	RepositoryInitialised() bool
}

type fileCopier interface {
	GetFileAsLocal(executionContext context.Context, remotePath string, localPath string) (environment.FileHandle, error)
}

type directoryCopier interface {
	GetDirectoryAsLocal(executionContext context.Context, remotePath string, localPath string) (environment.DirectoryHandle, error)
}

// readFileResult is one entry of the YAML rendering of read.
type readFileResult struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

// existenceResult is one entry of the YAML rendering of exists.
type existenceResult struct {
	Path   string `yaml:"path"`
	Exists bool   `yaml:"exists"`
}

func (application *Application) buildExecCommand() *cobra.Command {
	var (
		assignments   []string
		user          string
		passwordStdin bool
	)

	execCommand := &cobra.Command{
		Use:         execCommandUseConstant,
		Short:       execCommandShortConstant,
		Args:        cobra.MinimumNArgs(1),
		Annotations: auditCommandAnnotations(),
		RunE: func(command *cobra.Command, arguments []string) error {
			auditEnvironment, environmentError := application.environmentFromCommand(command)
			if environmentError != nil {
				return environmentError
			}

			variables := make([]environment.EnvironmentVariable, 0, len(assignments))
			for _, assignment := range assignments {
				variable, parseError := environment.ParseEnvironmentVariable(assignment)
				if parseError != nil {
					return parseError
				}
				variables = append(variables, variable)
			}

			trimmedUser := strings.TrimSpace(user)
			var (
				result         environment.ExecutionResult
				executionError error
			)
			switch {
			case passwordStdin && len(trimmedUser) == 0:
				return errors.New(passwordWithoutUserConstant)
			case len(trimmedUser) > 0 && len(variables) > 0:
				return errors.New(userEnvironmentConflictConstant)
			case len(trimmedUser) > 0:
				password := ""
				if passwordStdin {
					passwordValue, readError := readPassword(command.InOrStdin())
					if readError != nil {
						return readError
					}
					password = passwordValue
				}
				result, executionError = auditEnvironment.ExecuteAsUser(command.Context(), arguments[0], arguments[1:], trimmedUser, password)
			default:
				result, executionError = auditEnvironment.Execute(command.Context(), arguments[0], arguments[1:], variables...)
			}
			if executionError != nil {
				return executionError
			}

			renderer := newResultRenderer(command.OutOrStdout(), application.configuration.Common.Output)
			if renderer.format == outputYAMLConstant {
				if renderError := renderer.RenderYAML(result); renderError != nil {
					return renderError
				}
			} else {
				if renderError := renderer.RenderRaw(result.Output); renderError != nil {
					return renderError
				}
				if renderError := newResultRenderer(command.ErrOrStderr(), outputTextConstant).RenderRaw(result.Error); renderError != nil {
					return renderError
				}
			}

			if !result.Completed() {
				return fmt.Errorf(commandFailedTemplateConstant, strings.Join(arguments, " "), result.Status, result.ExitCode)
			}
			return nil
		},
	}

	execCommand.Flags().SetInterspersed(false)
	execCommand.Flags().StringArrayVar(&assignments, envFlagNameConstant, nil, envFlagUsageConstant)
	execCommand.Flags().StringVar(&user, userFlagNameConstant, "", userFlagUsageConstant)
	execCommand.Flags().BoolVar(&passwordStdin, passwordStdinFlagNameConstant, false, passwordStdinFlagUsageConstant)
	return execCommand
}

func (application *Application) buildExistsCommand() *cobra.Command {
	var directories bool

	existsCommand := &cobra.Command{
		Use:         existsCommandUseConstant,
		Short:       existsCommandShortConstant,
		Args:        cobra.MinimumNArgs(1),
		Annotations: auditCommandAnnotations(),
		RunE: func(command *cobra.Command, arguments []string) error {
			auditEnvironment, environmentError := application.environmentFromCommand(command)
			if environmentError != nil {
				return environmentError
			}

			results := make([]existenceResult, 0, len(arguments))
			pairs := make([]keyValue, 0, len(arguments))
			missing := make([]string, 0)
			for _, argument := range arguments {
				var (
					exists     bool
					probeError error
				)
				if directories {
					exists, probeError = auditEnvironment.ConstructDirectory(argument).Exists(command.Context())
				} else {
					exists, probeError = auditEnvironment.ConstructFile(argument).Exists(command.Context())
				}
				if probeError != nil {
					return probeError
				}
				results = append(results, existenceResult{Path: argument, Exists: exists})
				pairs = append(pairs, keyValue{Key: argument, Value: strconv.FormatBool(exists)})
				if !exists {
					missing = append(missing, argument)
				}
			}

			renderer := newResultRenderer(command.OutOrStdout(), application.configuration.Common.Output)
			var renderError error
			if renderer.format == outputYAMLConstant {
				renderError = renderer.RenderYAML(results)
			} else {
				renderError = renderer.RenderPairs(pairs)
			}
			if renderError != nil {
				return renderError
			}

			if len(missing) > 0 {
				return fmt.Errorf(pathsMissingTemplateConstant, strings.Join(missing, pathListSeparatorConstant))
			}
			return nil
		},
	}

	existsCommand.Flags().BoolVar(&directories, directoryFlagNameConstant, false, existsDirectoryFlagUsageConstant)
	return existsCommand
}

func (application *Application) buildReadCommand() *cobra.Command {
	return &cobra.Command{
		Use:         readCommandUseConstant,
		Short:       readCommandShortConstant,
		Args:        cobra.MinimumNArgs(1),
		Annotations: auditCommandAnnotations(),
		RunE: func(command *cobra.Command, arguments []string) error {
			auditEnvironment, environmentError := application.environmentFromCommand(command)
			if environmentError != nil {
				return environmentError
			}

			handles := make([]environment.FileHandle, 0, len(arguments))
			for _, argument := range arguments {
				handles = append(handles, auditEnvironment.ConstructFile(argument))
			}
			contents, readError := auditEnvironment.ReadFilesAsText(command.Context(), handles)
			if readError != nil {
				return readError
			}

			renderer := newResultRenderer(command.OutOrStdout(), application.configuration.Common.Output)
			if renderer.format == outputYAMLConstant {
				results := make([]readFileResult, 0, len(handles))
				for _, handle := range handles {
					results = append(results, readFileResult{Path: handle.Path(), Content: contents[handle]})
				}
				return renderer.RenderYAML(results)
			}

			for _, handle := range handles {
				if len(handles) > 1 {
					if renderError := renderer.Render(nil, []string{fmt.Sprintf(readHeaderTemplateConstant, handle.Path())}); renderError != nil {
						return renderError
					}
				}
				if renderError := renderer.RenderRaw(contents[handle]); renderError != nil {
					return renderError
				}
			}
			return nil
		},
	}
}

func (application *Application) buildListCommand() *cobra.Command {
	var (
		pattern     string
		directories bool
	)

	listCommand := &cobra.Command{
		Use:         listCommandUseConstant,
		Short:       listCommandShortConstant,
		Args:        cobra.ExactArgs(1),
		Annotations: auditCommandAnnotations(),
		RunE: func(command *cobra.Command, arguments []string) error {
			auditEnvironment, environmentError := application.environmentFromCommand(command)
			if environmentError != nil {
				return environmentError
			}

			directory := auditEnvironment.ConstructDirectory(arguments[0])
			paths := make([]string, 0)
			if directories {
				entries, listError := directory.GetDirectories(command.Context(), pattern)
				if listError != nil {
					return listError
				}
				for _, entry := range entries {
					paths = append(paths, entry.Path())
				}
			} else {
				entries, listError := directory.GetFiles(command.Context(), pattern)
				if listError != nil {
					return listError
				}
				for _, entry := range entries {
					paths = append(paths, entry.Path())
				}
			}

			return newResultRenderer(command.OutOrStdout(), application.configuration.Common.Output).Render(paths, paths)
		},
	}

	listCommand.Flags().StringVar(&pattern, patternFlagNameConstant, defaultPatternConstant, patternFlagUsageConstant)
	listCommand.Flags().BoolVar(&directories, directoriesFlagNameConstant, false, directoriesFlagUsageConstant)
	return listCommand
}

func (application *Application) buildStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:         statusCommandUseConstant,
		Short:       statusCommandShortConstant,
		Args:        cobra.NoArgs,
		Annotations: auditCommandAnnotations(),
		RunE: func(command *cobra.Command, arguments []string) error {
			auditEnvironment, environmentError := application.environmentFromCommand(command)
			if environmentError != nil {
				return environmentError
			}

			pairs := []keyValue{
				{Key: statusEnvironmentKeyConstant, Value: auditEnvironment.Name()},
				{Key: statusBackendKeyConstant, Value: application.configuration.Environment.Backend},
				{Key: statusReadyKeyConstant, Value: strconv.FormatBool(environmentReady(auditEnvironment))},
				{Key: statusSystemKeyConstant, Value: auditEnvironment.OperatingSystem().String()},
				{Key: statusConcurrencyKeyConstant, Value: strconv.Itoa(auditEnvironment.MaxConcurrentExecutions())},
			}
			return newResultRenderer(command.OutOrStdout(), application.configuration.Common.Output).RenderPairs(pairs)
		},
	}
}

func (application *Application) buildCopyCommand() *cobra.Command {
	var directory bool

	copyCommand := &cobra.Command{
		Use:         copyCommandUseConstant,
		Short:       copyCommandShortConstant,
		Args:        cobra.ExactArgs(2),
		Annotations: auditCommandAnnotations(),
		RunE: func(command *cobra.Command, arguments []string) error {
			auditEnvironment, environmentError := application.environmentFromCommand(command)
			if environmentError != nil {
				return environmentError
			}

			var copiedPath string
			if directory {
				copier, supported := auditEnvironment.(directoryCopier)
				if !supported {
					return fmt.Errorf(copyUnsupportedTemplateConstant, auditEnvironment.Name(), copyKindDirectoryConstant)
				}
				handle, copyError := copier.GetDirectoryAsLocal(command.Context(), arguments[0], arguments[1])
				if copyError != nil {
					return copyError
				}
				copiedPath = handle.Path()
			} else {
				copier, supported := auditEnvironment.(fileCopier)
				if !supported {
					return fmt.Errorf(copyUnsupportedTemplateConstant, auditEnvironment.Name(), copyKindFileConstant)
				}
				handle, copyError := copier.GetFileAsLocal(command.Context(), arguments[0], arguments[1])
				if copyError != nil {
					return copyError
				}
				copiedPath = handle.Path()
			}

			return newResultRenderer(command.OutOrStdout(), application.configuration.Common.Output).Render(copiedPath, []string{copiedPath})
		},
	}

	copyCommand.Flags().BoolVar(&directory, directoryFlagNameConstant, false, copyDirectoryFlagUsageConstant)
	return copyCommand
}

func auditCommandAnnotations() map[string]string {
	return map[string]string{auditCommandAnnotationConstant: auditCommandAnnotationValueConstant}
}

func environmentReady(auditEnvironment environment.AuditEnvironment) bool {
	switch typedEnvironment := auditEnvironment.(type) {
	case readinessReporter:
		return typedEnvironment.ContainerRunning()
	case repositoryReadinessReporter:
		return typedEnvironment.RepositoryInitialised()
	default:
		return true
	}
}

func readPassword(input io.Reader) (string, error) {
	content, readError := io.ReadAll(input)
	if readError != nil {
		return "", fmt.Errorf(passwordReadErrorTemplateConstant, readError)
	}
	return strings.TrimRight(string(content), "\r\n"), nil
}
