package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/devaudit/internal/environment"
	"github.com/temirov/devaudit/internal/environment/local"
	"github.com/temirov/devaudit/internal/execshell"
	"github.com/temirov/devaudit/internal/utils"
	"github.com/temirov/devaudit/internal/utils/flags"
	pathutils "github.com/temirov/devaudit/internal/utils/path"
)

const (
	applicationNameConstant                  = "devaudit"
	applicationShortDescriptionConstant      = "Inspect hosts, containers and repositories through one audit environment"
	applicationLongDescriptionConstant       = "devaudit discovers files and runs commands on the local host, inside a container or against a branch of a GitHub repository using the same operations."
	configFileFlagNameConstant               = "config"
	configFileFlagUsageConstant              = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                 = "log-level"
	logLevelFlagUsageConstant                = "Override the configured log level."
	logFormatFlagNameConstant                = "log-format"
	logFormatFlagUsageConstant               = "Override the configured log format."
	outputFlagNameConstant                   = "output"
	outputFlagUsageConstant                  = "Result rendering."
	environmentPrefixConstant                = "DEVAUDIT"
	configurationNameConstant                = "config"
	configurationTypeConstant                = "yaml"
	configurationDirectoryNameConstant       = "devaudit"
	defaultConfigurationSearchPathConstant   = "."
	configurationInitializedMessageConstant  = "configuration initialized"
	configurationLogLevelFieldConstant       = "log_level"
	configurationLogFormatFieldConstant      = "log_format"
	configurationBackendFieldConstant        = "backend"
	configurationFileFieldConstant           = "config_file"
	configurationLoadErrorTemplateConstant   = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant      = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant          = "unable to flush logger: %w"
	environmentCreationErrorTemplateConstant = "unable to create %s environment: %w"
	environmentMissingMessageConstant        = "audit environment not initialized"

	backendLocalConstant  = "local"
	backendDockerConstant = "docker"
	backendGitHubConstant = "github"
	outputTextConstant    = "text"
	outputYAMLConstant    = "yaml"
)

var (
	supportedBackends     = []string{backendLocalConstant, backendDockerConstant, backendGitHubConstant}
	supportedOutputs      = []string{outputTextConstant, outputYAMLConstant}
	supportedLogFormats   = []string{string(utils.LogFormatConsole), string(utils.LogFormatStructured)}
	errEnvironmentMissing = errors.New(environmentMissingMessageConstant)
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common      ApplicationCommonConfiguration `mapstructure:"common"`
	Environment EnvironmentConfiguration       `mapstructure:"environment"`
}

// ApplicationCommonConfiguration stores logging and rendering configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Output    string `mapstructure:"output"`
}

// EnvironmentConfiguration selects and tunes the audit environment.
type EnvironmentConfiguration struct {
	Backend        string                         `mapstructure:"backend"`
	Root           string                         `mapstructure:"root"`
	CommandTimeout time.Duration                  `mapstructure:"command_timeout"`
	Containerized  string                         `mapstructure:"containerized"`
	HostRoot       string                         `mapstructure:"host_root"`
	Docker         DockerEnvironmentConfiguration `mapstructure:"docker"`
	GitHub         GitHubEnvironmentConfiguration `mapstructure:"github"`
}

// DockerEnvironmentConfiguration names the audited container. Root anchors relative paths inside the container and
// is independent of the local root used for copy destinations.
type DockerEnvironmentConfiguration struct {
	Container string `mapstructure:"container"`
	Root      string `mapstructure:"root"`
}

// GitHubEnvironmentConfiguration names the audited repository branch.
type GitHubEnvironmentConfiguration struct {
	Owner          string        `mapstructure:"owner"`
	Repository     string        `mapstructure:"repository"`
	Branch         string        `mapstructure:"branch"`
	TokenEnv       string        `mapstructure:"token_env"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Dependencies replaces the process-level collaborators of the application.
type Dependencies struct {
	// CommandRunner runs docker, gh and local commands. Defaults to execshell.OSCommandRunner.
	CommandRunner execshell.CommandRunner
	// LogOutput receives diagnostics. Defaults to standard error.
	LogOutput io.Writer
	// ContainerDetector overrides detection of a containerized auditor.
	ContainerDetector local.ContainerDetector
}

// Application wires the Cobra root command, configuration loader, structured logger and audit environment.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	outputFlagValue        string
	targetFlags            *flags.TargetFlagValues
	commandContextAccessor utils.CommandContextAccessor
	homeExpander           *pathutils.HomeExpander
	dependencies           Dependencies
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	return NewApplicationWithDependencies(Dependencies{})
}

// NewApplicationWithDependencies assembles the application around the provided collaborators.
func NewApplicationWithDependencies(dependencies Dependencies) *Application {
	if dependencies.CommandRunner == nil {
		dependencies.CommandRunner = execshell.NewOSCommandRunner()
	}

	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		configurationSearchPaths(),
	)
	configurationLoader.SetEmbeddedConfiguration(DefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactoryWithOutput(dependencies.LogOutput),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		homeExpander:           pathutils.NewHomeExpander(),
		dependencies:           dependencies,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initialize(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	persistentFlags.StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", flags.FormatChoiceUsage(string(utils.LogFormatConsole), supportedLogFormats, logFormatFlagUsageConstant))
	persistentFlags.StringVar(&application.outputFlagValue, outputFlagNameConstant, "", flags.FormatChoiceUsage(outputTextConstant, supportedOutputs, outputFlagUsageConstant))
	application.targetFlags = flags.BindTargetFlags(cobraCommand, backendLocalConstant, supportedBackends)

	cobraCommand.AddCommand(
		application.buildExecCommand(),
		application.buildExistsCommand(),
		application.buildReadCommand(),
		application.buildListCommand(),
		application.buildStatusCommand(),
		application.buildCopyCommand(),
	)

	application.rootCommand = cobraCommand
	return application
}

// Command exposes the root command so callers can set arguments and output streams.
func (application *Application) Command() *cobra.Command {
	return application.rootCommand
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initialize(command *cobra.Command) error {
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, nil, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration
	application.applyFlagOverrides(command)

	outputFormat, outputError := flags.NormalizeChoice(application.configuration.Common.Output, supportedOutputs)
	if outputError != nil {
		return outputError
	}
	application.configuration.Common.Output = outputFormat

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationBackendFieldConstant, application.configuration.Environment.Backend),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	updatedContext := application.commandContextAccessor.WithConfigurationFilePath(command.Context(), application.configurationMetadata.ConfigFileUsed)
	if command.Annotations[auditCommandAnnotationConstant] == auditCommandAnnotationValueConstant {
		auditEnvironment, environmentError := application.buildEnvironment(updatedContext)
		if environmentError != nil {
			return environmentError
		}
		updatedContext = application.commandContextAccessor.WithAuditEnvironment(updatedContext, auditEnvironment)
	}
	command.SetContext(updatedContext)
	return nil
}

func (application *Application) applyFlagOverrides(command *cobra.Command) {
	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	if application.persistentFlagChanged(command, outputFlagNameConstant) {
		application.configuration.Common.Output = application.outputFlagValue
	}

	environmentConfiguration := &application.configuration.Environment
	merged := application.targetFlags.Merge(flags.TargetFlagValues{
		Backend:    environmentConfiguration.Backend,
		Container:  environmentConfiguration.Docker.Container,
		Owner:      environmentConfiguration.GitHub.Owner,
		Repository: environmentConfiguration.GitHub.Repository,
		Branch:     environmentConfiguration.GitHub.Branch,
	})
	environmentConfiguration.Backend = merged.Backend
	environmentConfiguration.Docker.Container = merged.Container
	environmentConfiguration.GitHub.Owner = merged.Owner
	environmentConfiguration.GitHub.Repository = merged.Repository
	environmentConfiguration.GitHub.Branch = merged.Branch
}

func (application *Application) buildEnvironment(executionContext context.Context) (environment.AuditEnvironment, error) {
	backend, backendError := flags.NormalizeChoice(application.configuration.Environment.Backend, supportedBackends)
	if backendError != nil {
		return nil, backendError
	}
	factory := environmentFactory{
		logger:            application.logger,
		commandRunner:     application.dependencies.CommandRunner,
		containerDetector: application.dependencies.ContainerDetector,
		homeExpander:      application.homeExpander,
		humanReadable:     application.configuration.Common.LogFormat == string(utils.LogFormatConsole),
	}
	auditEnvironment, creationError := factory.Build(executionContext, backend, application.configuration.Environment)
	if creationError != nil {
		return nil, fmt.Errorf(environmentCreationErrorTemplateConstant, backend, creationError)
	}
	return auditEnvironment, nil
}

func (application *Application) environmentFromCommand(command *cobra.Command) (environment.AuditEnvironment, error) {
	auditEnvironment, available := application.commandContextAccessor.AuditEnvironment(command.Context())
	if !available {
		return nil, errEnvironmentMissing
	}
	return auditEnvironment, nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}
	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}
	flagSetsToInspect := []*pflag.FlagSet{command.PersistentFlags(), command.InheritedFlags()}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}
	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}

func configurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, configurationDirectoryNameConstant))
	}
	return searchPaths
}
