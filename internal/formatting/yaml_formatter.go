package formatting

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

// Format encodes r as YAML. The value goes through JSON first so field
// names and omitempty follow the json tags of the API types.
func (f *YAMLFormatter) Format(w io.Writer, r Resource) error {
	out, err := ToYAML(r)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// ToYAML converts v to YAML via its JSON encoding.
func ToYAML(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return "", fmt.Errorf("failed to convert: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return string(out), nil
}
