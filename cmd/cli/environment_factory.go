package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/devaudit/internal/environment"
	"github.com/temirov/devaudit/internal/environment/docker"
	"github.com/temirov/devaudit/internal/environment/github"
	"github.com/temirov/devaudit/internal/environment/local"
	"github.com/temirov/devaudit/internal/execshell"
	"github.com/temirov/devaudit/internal/githubauth"
	"github.com/temirov/devaudit/internal/githubcli"
	"github.com/temirov/devaudit/internal/gitrepo"
	"github.com/temirov/devaudit/internal/ui"
	pathutils "github.com/temirov/devaudit/internal/utils/path"
)

const (
	unsupportedBackendTemplateConstant    = "unsupported backend %q"
	workingDirectoryErrorTemplateConstant = "unable to determine working directory: %w"
	githubTokenMissingMessageConstant     = "no GitHub token found; relying on gh authentication"
)

// environmentFactory builds the audit environment selected by configuration.
type environmentFactory struct {
	logger            *zap.Logger
	commandRunner     execshell.CommandRunner
	containerDetector local.ContainerDetector
	homeExpander      *pathutils.HomeExpander
	humanReadable     bool
}

// Build constructs the environment for the normalized backend name.
func (factory environmentFactory) Build(executionContext context.Context, backend string, configuration EnvironmentConfiguration) (environment.AuditEnvironment, error) {
	shellExecutor, executorError := execshell.NewShellExecutor(factory.logger, factory.commandRunner)
	if executorError != nil {
		return nil, executorError
	}
	shellExecutor.SetCommandTimeout(configuration.CommandTimeout)
	if factory.humanReadable {
		shellExecutor.SetEventObserver(ui.NewConsoleCommandEventLogger(factory.logger))
	}
	messageHandler := ui.NewEnvironmentEventLogger(factory.logger).Handle

	localEnvironment, localError := factory.buildLocal(shellExecutor, configuration, messageHandler)
	if localError != nil {
		return nil, localError
	}

	switch backend {
	case backendLocalConstant:
		return localEnvironment, nil
	case backendDockerConstant:
		return docker.NewEnvironment(executionContext, localEnvironment, docker.Options{
			Container:      configuration.Docker.Container,
			Root:           strings.TrimSpace(configuration.Docker.Root),
			MessageHandler: messageHandler,
		})
	case backendGitHubConstant:
		return factory.buildGitHub(executionContext, shellExecutor, localEnvironment, configuration, messageHandler)
	default:
		return nil, fmt.Errorf(unsupportedBackendTemplateConstant, backend)
	}
}

func (factory environmentFactory) buildLocal(shellExecutor *execshell.ShellExecutor, configuration EnvironmentConfiguration, messageHandler environment.MessageHandler) (*local.Environment, error) {
	containerization, containerizationError := local.ParseContainerizationMode(configuration.Containerized)
	if containerizationError != nil {
		return nil, containerizationError
	}

	root := factory.homeExpander.Expand(strings.TrimSpace(configuration.Root))
	if len(root) == 0 {
		workingDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return nil, fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)
		}
		root = workingDirectory
	}

	return local.NewEnvironment(shellExecutor, local.Options{
		Root:             root,
		Containerization: containerization,
		HostRoot:         factory.homeExpander.Expand(configuration.HostRoot),
		MessageHandler:   messageHandler,
		Detector:         factory.containerDetector,
	})
}

func (factory environmentFactory) buildGitHub(executionContext context.Context, shellExecutor *execshell.ShellExecutor, localEnvironment *local.Environment, configuration EnvironmentConfiguration, messageHandler environment.MessageHandler) (environment.AuditEnvironment, error) {
	token, tokenFound := githubauth.ResolveToken(configuration.GitHub.TokenEnv, nil)
	if !tokenFound {
		factory.logger.Debug(githubTokenMissingMessageConstant)
	}

	owner := configuration.GitHub.Owner
	repository := configuration.GitHub.Repository
	if gitrepo.IsReference(repository) {
		reference, referenceError := gitrepo.ParseReference(repository)
		if referenceError != nil {
			return nil, referenceError
		}
		owner = reference.Owner
		repository = reference.Repository
	}

	options := github.Options{
		Owner:          owner,
		Repository:     repository,
		Branch:         configuration.GitHub.Branch,
		Host:           localEnvironment,
		MessageHandler: messageHandler,
	}

	client, clientError := githubcli.NewClient(shellExecutor, token)
	if clientError != nil {
		return github.NewEnvironment(executionContext, nil, options)
	}
	client.SetRequestTimeout(configuration.GitHub.RequestTimeout)
	return github.NewEnvironment(executionContext, client, options)
}
