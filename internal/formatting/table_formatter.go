package formatting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// Format renders r as a rounded box table.
func (f *TableFormatter) Format(w io.Writer, r Resource) error {
	rows := r.Rows()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, f.formatEmptyMessage("No results"))
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if f.options.Color {
		t.Style().Color.Header = text.Colors{text.FgHiCyan, text.Bold}
	}

	if !f.options.NoHeaders {
		header := table.Row{}
		for _, col := range r.Columns() {
			header = append(header, col)
		}
		t.AppendHeader(header)
	}
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		t.AppendRow(tr)
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, f.formatSummary(len(rows)))
	return err
}

func (f *TableFormatter) formatEmptyMessage(message string) string {
	if f.options.Color {
		return text.FgYellow.Sprint(message)
	}
	return message
}

func (f *TableFormatter) formatSummary(count int) string {
	noun := "items"
	if count == 1 {
		noun = "item"
	}
	summary := fmt.Sprintf("Total: %d %s", count, noun)
	if f.options.Color {
		return text.Faint.Sprint(summary)
	}
	return summary
}
