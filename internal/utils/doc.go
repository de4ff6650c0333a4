// Package utils holds the CLI plumbing shared by commands.
//
// ConfigurationLoader layers embedded defaults, configuration files and
// DEVAUDIT_ environment variables through Viper. LoggerFactory builds zap
// loggers, and CommandContextAccessor carries the selected audit environment
// through Cobra command contexts.
package utils
