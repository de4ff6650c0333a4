package cli

import (
	"bytes"
	_ "embed"
)

//go:embed default_config.yaml
var defaultConfigurationDocument []byte

// DefaultConfiguration returns a copy of the built-in configuration document and its format. Every other
// configuration source is merged on top of it.
func DefaultConfiguration() ([]byte, string) {
	return bytes.Clone(defaultConfigurationDocument), configurationTypeConstant
}
