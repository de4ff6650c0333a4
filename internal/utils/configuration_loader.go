package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	configurationKeySeparatorConstant        = "."
	environmentKeySeparatorConstant          = "_"
	listValueSeparatorConstant               = ","
	embeddedMergeErrorTemplateConstant       = "failed to merge embedded configuration: %w"
	configurationReadErrorTemplateConstant   = "failed to read configuration: %w"
	configurationDecodeErrorTemplateConstant = "failed to parse configuration: %w"
)

// ConfigurationLoader layers configuration sources with Viper. Explicit defaults sit beneath everything; above them
// come the embedded document, the first configuration file found (or the explicit one), then PREFIX_SECTION_KEY
// environment variables.
// Durations such as "30s", comma separated lists and text-unmarshalable values decode into typed fields.
type ConfigurationLoader struct {
	name              string
	format            string
	environmentPrefix string
	searchPaths       []string
	embeddedDocument  []byte
	embeddedFormat    string
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	// ConfigFileUsed is empty when no configuration file was found.
	ConfigFileUsed string
}

// NewConfigurationLoader creates a loader for name.format files found in searchPaths.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		name:              configurationName,
		format:            configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string(nil), searchPaths...),
	}
}

// SetEmbeddedConfiguration registers the built-in document merged beneath every other source.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	if loader == nil {
		return
	}
	loader.embeddedFormat = strings.TrimSpace(configurationType)
	if len(configurationData) == 0 {
		loader.embeddedDocument = nil
		return
	}
	loader.embeddedDocument = bytes.Clone(configurationData)
}

// LoadConfiguration decodes the layered configuration into targetConfiguration. An explicit configurationFilePath
// must exist; a search that finds nothing is not an error.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.name)
	viperInstance.SetConfigType(loader.format)

	if mergeError := loader.mergeEmbedded(viperInstance); mergeError != nil {
		return LoadedConfiguration{}, mergeError
	}
	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}
	if readError := loader.mergeFile(viperInstance, configurationFilePath); readError != nil {
		return LoadedConfiguration{}, readError
	}
	loader.bindEnvironment(viperInstance)

	if decodeError := viperInstance.Unmarshal(targetConfiguration, viper.DecodeHook(configurationDecodeHook())); decodeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplateConstant, decodeError)
	}
	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}

func (loader *ConfigurationLoader) mergeEmbedded(viperInstance *viper.Viper) error {
	if len(loader.embeddedDocument) == 0 {
		return nil
	}
	if len(loader.embeddedFormat) > 0 {
		viperInstance.SetConfigType(loader.embeddedFormat)
		defer viperInstance.SetConfigType(loader.format)
	}
	if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedDocument)); mergeError != nil {
		return fmt.Errorf(embeddedMergeErrorTemplateConstant, mergeError)
	}
	return nil
}

func (loader *ConfigurationLoader) mergeFile(viperInstance *viper.Viper, configurationFilePath string) error {
	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	} else {
		for _, searchPath := range loader.searchPaths {
			viperInstance.AddConfigPath(searchPath)
		}
	}

	readError := viperInstance.MergeInConfig()
	if readError == nil {
		return nil
	}
	var notFoundError viper.ConfigFileNotFoundError
	if errors.As(readError, &notFoundError) {
		return nil
	}
	return fmt.Errorf(configurationReadErrorTemplateConstant, readError)
}

func (loader *ConfigurationLoader) bindEnvironment(viperInstance *viper.Viper) {
	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant))
	viperInstance.AutomaticEnv()
}

func configurationDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(listValueSeparatorConstant),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}
