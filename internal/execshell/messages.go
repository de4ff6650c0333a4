package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	fallbackUnknownValueLabelConstant       = "unknown"
	flagPrefixConstant                      = "-"
	endpointSeparatorConstant               = "/"
	endpointQuerySeparatorConstant          = "?"
	containerPathSeparatorConstant          = ":"
	repositoryRootLabelConstant             = "repository root"
)

const (
	dockerListSubcommandNameConstant            = "ps"
	dockerExecSubcommandNameConstant            = "exec"
	dockerCopySubcommandNameConstant            = "cp"
	dockerCopyArgumentCountConstant             = 3
	chrootWrappedMinimumArgumentCountConstant   = 2
	githubAPISubcommandNameConstant             = "api"
	githubRepositoryEndpointPrefixConstant      = "repos"
	githubBranchesEndpointSegmentConstant       = "branches"
	githubContentsEndpointSegmentConstant       = "contents"
	githubRepositoryEndpointPartCountConstant   = 3
	githubBranchEndpointPartCountConstant       = 5
	githubContentsEndpointMinimumPartsConstant  = 4
	sudoUserFlagConstant                        = "-u"
	sudoShellFlagConstant                       = "-s"
	dockerExecMinimumArgumentCountConstant      = 2
	dockerExecContainerArgumentPositionConstant = 1
)

const (
	dockerListStartTemplateConstant            = "Listing containers"
	dockerListSuccessTemplateConstant          = "Listed containers"
	dockerListFailureTemplateConstant          = "Failed to list containers (exit code %d%s)"
	dockerListExecutionFailureTemplateConstant = "Unable to list containers: %s"

	dockerExecStartTemplateConstant            = "Running %s in container %s"
	dockerExecSuccessTemplateConstant          = "Ran %s in container %s"
	dockerExecFailureTemplateConstant          = "%s in container %s failed (exit code %d%s)"
	dockerExecExecutionFailureTemplateConstant = "Unable to run %s in container %s: %s"

	dockerCopyStartTemplateConstant            = "Copying %s from container %s to %s"
	dockerCopySuccessTemplateConstant          = "Copied %s from container %s to %s"
	dockerCopyFailureTemplateConstant          = "Failed to copy %s from container %s to %s (exit code %d%s)"
	dockerCopyExecutionFailureTemplateConstant = "Unable to copy %s from container %s to %s: %s"

	chrootPrefixTemplateConstant = "[host %s] %s"

	sudoStartTemplateConstant            = "Running %s as %s"
	sudoSuccessTemplateConstant          = "Ran %s as %s"
	sudoFailureTemplateConstant          = "%s as %s failed (exit code %d%s)"
	sudoExecutionFailureTemplateConstant = "Unable to run %s as %s: %s"

	githubRepositoryStartTemplateConstant            = "Resolving repository %s"
	githubRepositorySuccessTemplateConstant          = "Resolved repository %s"
	githubRepositoryFailureTemplateConstant          = "Failed to resolve repository %s (exit code %d%s)"
	githubRepositoryExecutionFailureTemplateConstant = "Unable to resolve repository %s: %s"

	githubBranchStartTemplateConstant            = "Resolving branch %s of %s"
	githubBranchSuccessTemplateConstant          = "Resolved branch %s of %s"
	githubBranchFailureTemplateConstant          = "Failed to resolve branch %s of %s (exit code %d%s)"
	githubBranchExecutionFailureTemplateConstant = "Unable to resolve branch %s of %s: %s"

	githubContentsStartTemplateConstant            = "Fetching %s from %s"
	githubContentsSuccessTemplateConstant          = "Fetched %s from %s"
	githubContentsFailureTemplateConstant          = "Failed to fetch %s from %s (exit code %d%s)"
	githubContentsExecutionFailureTemplateConstant = "Unable to fetch %s from %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandDocker:
		return formatter.describeDockerMessage(command, result, failure, stage)
	case CommandChroot:
		return formatter.describeChrootMessage(command, result, failure, stage)
	case CommandSudo:
		return formatter.describeSudoMessage(command, result, failure, stage)
	case CommandGitHub:
		return formatter.describeGitHubMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeDockerMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	switch strings.TrimSpace(arguments[0]) {
	case dockerListSubcommandNameConstant:
		switch stage {
		case messageStageStart:
			return dockerListStartTemplateConstant
		case messageStageSuccess:
			return dockerListSuccessTemplateConstant
		case messageStageFailure:
			return fmt.Sprintf(dockerListFailureTemplateConstant, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return fmt.Sprintf(dockerListExecutionFailureTemplateConstant, formatter.describeFailure(failure))
		}
	case dockerExecSubcommandNameConstant:
		if len(arguments) <= dockerExecMinimumArgumentCountConstant {
			return formatter.buildGenericMessage(command, result, failure, stage)
		}
		container := arguments[dockerExecContainerArgumentPositionConstant]
		innerCommand := strings.Join(arguments[dockerExecMinimumArgumentCountConstant:], commandArgumentsJoinSeparatorConstant)
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(dockerExecStartTemplateConstant, innerCommand, container)
		case messageStageSuccess:
			return fmt.Sprintf(dockerExecSuccessTemplateConstant, innerCommand, container)
		case messageStageFailure:
			return fmt.Sprintf(dockerExecFailureTemplateConstant, innerCommand, container, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return fmt.Sprintf(dockerExecExecutionFailureTemplateConstant, innerCommand, container, formatter.describeFailure(failure))
		}
	case dockerCopySubcommandNameConstant:
		if len(arguments) != dockerCopyArgumentCountConstant {
			return formatter.buildGenericMessage(command, result, failure, stage)
		}
		container, sourcePath := splitContainerPath(arguments[1])
		destinationPath := arguments[2]
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(dockerCopyStartTemplateConstant, sourcePath, container, destinationPath)
		case messageStageSuccess:
			return fmt.Sprintf(dockerCopySuccessTemplateConstant, sourcePath, container, destinationPath)
		case messageStageFailure:
			return fmt.Sprintf(dockerCopyFailureTemplateConstant, sourcePath, container, destinationPath, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return fmt.Sprintf(dockerCopyExecutionFailureTemplateConstant, sourcePath, container, destinationPath, formatter.describeFailure(failure))
		}
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

// describeChrootMessage renders the wrapped command and marks it with the host root it runs under.
func (formatter CommandMessageFormatter) describeChrootMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) < chrootWrappedMinimumArgumentCountConstant {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	wrappedCommand := ShellCommand{
		Name: CommandName(arguments[1]),
		Details: CommandDetails{
			Arguments:        arguments[2:],
			WorkingDirectory: command.Details.WorkingDirectory,
		},
	}
	return fmt.Sprintf(chrootPrefixTemplateConstant, arguments[0], formatter.buildMessage(wrappedCommand, result, failure, stage))
}

func (formatter CommandMessageFormatter) describeSudoMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	user := findFlagValue(arguments, sudoUserFlagConstant)
	shellIndex := indexOfArgument(arguments, sudoShellFlagConstant)
	if len(user) == 0 || shellIndex < 0 || shellIndex+1 >= len(arguments) {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	innerCommand := strings.Join(arguments[shellIndex+1:], commandArgumentsJoinSeparatorConstant)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(sudoStartTemplateConstant, innerCommand, user)
	case messageStageSuccess:
		return fmt.Sprintf(sudoSuccessTemplateConstant, innerCommand, user)
	case messageStageFailure:
		return fmt.Sprintf(sudoFailureTemplateConstant, innerCommand, user, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(sudoExecutionFailureTemplateConstant, innerCommand, user, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitHubMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) < 2 || strings.TrimSpace(arguments[0]) != githubAPISubcommandNameConstant {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	endpoint := formatter.extractFirstNonFlagArgument(arguments[1:])
	endpoint, _, _ = strings.Cut(endpoint, endpointQuerySeparatorConstant)
	endpointParts := strings.Split(strings.Trim(endpoint, endpointSeparatorConstant), endpointSeparatorConstant)
	if len(endpointParts) < githubRepositoryEndpointPartCountConstant || endpointParts[0] != githubRepositoryEndpointPrefixConstant {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	repository := strings.Join(endpointParts[1:githubRepositoryEndpointPartCountConstant], endpointSeparatorConstant)

	switch {
	case len(endpointParts) == githubRepositoryEndpointPartCountConstant:
		return formatter.describeStage(stage, result, failure,
			githubRepositoryStartTemplateConstant, githubRepositorySuccessTemplateConstant,
			githubRepositoryFailureTemplateConstant, githubRepositoryExecutionFailureTemplateConstant,
			repository)
	case len(endpointParts) == githubBranchEndpointPartCountConstant && endpointParts[3] == githubBranchesEndpointSegmentConstant:
		return formatter.describeStage(stage, result, failure,
			githubBranchStartTemplateConstant, githubBranchSuccessTemplateConstant,
			githubBranchFailureTemplateConstant, githubBranchExecutionFailureTemplateConstant,
			endpointParts[4], repository)
	case len(endpointParts) >= githubContentsEndpointMinimumPartsConstant && endpointParts[3] == githubContentsEndpointSegmentConstant:
		contentPath := strings.Join(endpointParts[githubContentsEndpointMinimumPartsConstant:], endpointSeparatorConstant)
		if len(contentPath) == 0 {
			contentPath = repositoryRootLabelConstant
		}
		return formatter.describeStage(stage, result, failure,
			githubContentsStartTemplateConstant, githubContentsSuccessTemplateConstant,
			githubContentsFailureTemplateConstant, githubContentsExecutionFailureTemplateConstant,
			contentPath, repository)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

// describeStage fills the template matching the stage. Failure templates receive the exit code and standard error
// suffix after the subject values; execution failure templates receive the failure description.
func (formatter CommandMessageFormatter) describeStage(stage messageStage, result ExecutionResult, failure error, startTemplate string, successTemplate string, failureTemplate string, executionFailureTemplate string, subjects ...any) string {
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(startTemplate, subjects...)
	case messageStageSuccess:
		return fmt.Sprintf(successTemplate, subjects...)
	case messageStageFailure:
		values := append(append([]any{}, subjects...), result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		return fmt.Sprintf(failureTemplate, values...)
	default:
		values := append(append([]any{}, subjects...), formatter.describeFailure(failure))
		return fmt.Sprintf(executionFailureTemplate, values...)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	label := command.Label()
	if len(command.Details.WorkingDirectory) > 0 {
		label += fmt.Sprintf(workingDirectorySuffixTemplateConstant, command.Details.WorkingDirectory)
	}
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, label)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, label)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, label, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, label, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmed := strings.TrimSpace(standardError)
	if len(trimmed) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmed)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	description := strings.TrimSpace(failure.Error())
	if len(description) == 0 {
		return unknownFailureMessageConstant
	}
	return description
}

func (formatter CommandMessageFormatter) extractFirstNonFlagArgument(arguments []string) string {
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}

func splitContainerPath(argument string) (string, string) {
	container, containerPath, found := strings.Cut(argument, containerPathSeparatorConstant)
	if !found {
		return fallbackUnknownValueLabelConstant, argument
	}
	return container, containerPath
}

func findFlagValue(arguments []string, flag string) string {
	flagIndex := indexOfArgument(arguments, flag)
	if flagIndex < 0 || flagIndex+1 >= len(arguments) {
		return emptyStringConstant
	}
	return strings.TrimSpace(arguments[flagIndex+1])
}

func indexOfArgument(arguments []string, target string) int {
	for index, argument := range arguments {
		if strings.TrimSpace(argument) == target {
			return index
		}
	}
	return -1
}
