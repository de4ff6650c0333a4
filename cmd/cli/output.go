package cli

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	yamlIndentConstant           = 2
	textLineTemplateConstant     = "%s\n"
	textKeyValueTemplateConstant = "%s: %s\n"
)

// keyValue is one row of a text report. YAML output uses the mapping form instead.
type keyValue struct {
	Key   string
	Value string
}

// resultRenderer writes command results either as plain text or as a YAML document.
type resultRenderer struct {
	writer io.Writer
	format string
}

func newResultRenderer(writer io.Writer, format string) resultRenderer {
	return resultRenderer{writer: writer, format: format}
}

// RenderYAML encodes value as a YAML document.
func (renderer resultRenderer) RenderYAML(value any) error {
	encoder := yaml.NewEncoder(renderer.writer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(value); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}

// Render writes structured when YAML output is selected and the text lines otherwise.
func (renderer resultRenderer) Render(structured any, lines []string) error {
	if renderer.format == outputYAMLConstant {
		return renderer.RenderYAML(structured)
	}
	for _, line := range lines {
		if _, writeError := fmt.Fprintf(renderer.writer, textLineTemplateConstant, line); writeError != nil {
			return writeError
		}
	}
	return nil
}

// RenderPairs writes ordered key/value rows as text or as a YAML mapping that keeps the row order.
func (renderer resultRenderer) RenderPairs(pairs []keyValue) error {
	if renderer.format == outputYAMLConstant {
		mapping := &yaml.Node{Kind: yaml.MappingNode}
		for _, pair := range pairs {
			mapping.Content = append(mapping.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: pair.Key},
				&yaml.Node{Kind: yaml.ScalarNode, Value: pair.Value},
			)
		}
		return renderer.RenderYAML(mapping)
	}
	for _, pair := range pairs {
		if _, writeError := fmt.Fprintf(renderer.writer, textKeyValueTemplateConstant, pair.Key, pair.Value); writeError != nil {
			return writeError
		}
	}
	return nil
}

// RenderRaw writes text verbatim, adding a trailing newline when it is missing.
func (renderer resultRenderer) RenderRaw(text string) error {
	if len(text) == 0 {
		return nil
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, writeError := io.WriteString(renderer.writer, text)
	return writeError
}
