package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/etabench/etabench/internal/eta"
)

// ErrEmptyCSV is returned when the stream contains no header row.
var ErrEmptyCSV = errors.New("csv: empty input")

// ReadCSV parses a benchmark CSV export into raw rows keyed by header name.
// The first record is the header; field-name variance is left for Adapt to
// resolve. Short rows are tolerated (missing cells are simply absent keys);
// a malformed stream returns an error, since an unreadable batch is a
// call-site problem rather than a data-quality one.
func ReadCSV(r io.Reader) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // exports occasionally carry ragged rows
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var rows []RawRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row %d: %w", len(rows)+2, err)
		}

		row := make(RawRow, len(header))
		empty := true
		for i, cell := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			row[header[i]] = cell
			if strings.TrimSpace(cell) != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// DropIncomplete applies the CSV cleaning rule inherited from the original
// exports: keep only rows where the reference and every compared provider
// resolved to a positive duration. The document-store path deliberately does
// NOT use this — there the classifier degrades zero-value rows to Similar.
func DropIncomplete(rows []RawRow) []RawRow {
	out := make([]RawRow, 0, len(rows))
	for _, row := range rows {
		rf := Adapt(row)
		if rf.Durations[eta.ProviderGoogle] <= 0 {
			continue
		}
		ok := true
		for _, p := range eta.ComparedProviders {
			if rf.Durations[p] <= 0 {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, row)
		}
	}
	return out
}
