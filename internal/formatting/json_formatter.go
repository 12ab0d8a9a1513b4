package formatting

import (
	"fmt"
	"io"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

// Format encodes r as indented JSON.
func (f *JSONFormatter) Format(w io.Writer, r Resource) error {
	_, err := fmt.Fprintln(w, PrettyJSON(r))
	return err
}
