// Package export writes spreadsheet-friendly CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// ErrFieldCount is returned when a row does not match the header width.
type ErrFieldCount struct {
	Row  int
	Want int
	Got  int
}

func (e *ErrFieldCount) Error() string {
	return fmt.Sprintf("export: row %d has %d fields, want %d", e.Row, e.Got, e.Want)
}

// Write emits a UTF-8 BOM, the header record and every row as RFC 4180
// records terminated by CRLF. A row with the wrong number of fields stops
// the write before any of that row is emitted.
func Write(w io.Writer, headers []string, rows [][]string) error {
	if _, err := w.Write(bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(headers); err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) != len(headers) {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			return &ErrFieldCount{Row: i, Want: len(headers), Got: len(row)}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
