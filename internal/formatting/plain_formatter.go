package formatting

import (
	"fmt"
	"io"
	"strings"
)

const minPadding = 3

// PlainFormatter writes kubectl-style columns without box-drawing
// characters, suitable for grep, awk and cut.
type PlainFormatter struct {
	options Options
}

// NewPlainFormatter creates a new plain formatter
func NewPlainFormatter(options Options) Formatter {
	return &PlainFormatter{options: options}
}

// Format renders r with upper-cased headers and space-aligned columns.
func (f *PlainFormatter) Format(w io.Writer, r Resource) error {
	columns := r.Columns()
	if len(columns) == 0 {
		return nil
	}
	rows := r.Rows()
	if len(rows) == 0 && f.options.NoHeaders {
		return nil
	}

	headers := make([]string, len(columns))
	widths := make([]int, len(columns))
	for i, c := range columns {
		headers[i] = strings.ToUpper(c)
		widths[i] = len(headers[i])
	}

	normalized := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i := range columns {
			if i < len(row) {
				cells[i] = row[i]
				widths[i] = max(widths[i], len(row[i]))
			}
		}
		normalized = append(normalized, cells)
	}

	if !f.options.NoHeaders {
		if err := writePlainRow(w, headers, widths); err != nil {
			return err
		}
	}
	for _, cells := range normalized {
		if err := writePlainRow(w, cells, widths); err != nil {
			return err
		}
	}
	return nil
}

func writePlainRow(w io.Writer, cells []string, widths []int) error {
	var sb strings.Builder
	for i, cell := range cells {
		if i == len(cells)-1 {
			sb.WriteString(cell)
			continue
		}
		sb.WriteString(cell)
		sb.WriteString(strings.Repeat(" ", widths[i]-len(cell)+minPadding))
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	return err
}
