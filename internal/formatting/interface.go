// Package formatting renders command results for the terminal.
//
// Every listable result implements Resource. A Formatter chosen from
// Options turns a Resource into a rounded table, a plain kubectl-style
// table, JSON or YAML.
package formatting

import (
	"fmt"
	"io"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatPlain OutputFormat = "plain" // Column-aligned text for piping
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat validates s and returns the matching OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatTable, FormatPlain, FormatJSON, FormatYAML:
		return OutputFormat(s), nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format: %q (valid: table, plain, json, yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format    OutputFormat
	NoHeaders bool // Suppress the header row in table output
	Color     bool // Enable colored output
}

// Resource is a value that can be shown as rows. The value itself is what
// the JSON and YAML formatters encode.
type Resource interface {
	Columns() []string
	Rows() [][]string
}

// Formatter writes a Resource to w.
type Formatter interface {
	Format(w io.Writer, r Resource) error
}

// New returns the formatter for options.Format.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatPlain:
		return NewPlainFormatter(options)
	case FormatTable:
		fallthrough
	default:
		return NewTableFormatter(options)
	}
}
