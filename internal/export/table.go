package export

import (
	"io"
)

// Column extracts one cell from a record.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Table is an ordered set of columns. Every row it renders has exactly one
// field per column.
type Table[T any] []Column[T]

func (t Table[T]) Headers() []string {
	out := make([]string, len(t))
	for i, col := range t {
		out[i] = col.Header
	}
	return out
}

func (t Table[T]) Rows(records []T) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, len(t))
		for i, col := range t {
			row[i] = col.Value(record)
		}
		rows = append(rows, row)
	}
	return rows
}

func (t Table[T]) Write(w io.Writer, records []T) error {
	return Write(w, t.Headers(), t.Rows(records))
}
