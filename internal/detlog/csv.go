package detlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// timestampColumn is the first header field of the at-rest CSV form.
const timestampColumn = "timestamp_sec"

// WriteCSV serializes the log in its at-rest form: a timestamp_sec column
// followed by one boolean column per category.
func (l *Log) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{timestampColumn}, l.categories...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for _, r := range l.rows {
		record[0] = strconv.FormatFloat(r.Timestamp, 'f', -1, 64)
		for i, c := range l.categories {
			record[i+1] = strconv.FormatBool(r.Flags[c])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row at %v: %w", r.Timestamp, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a log from its at-rest form. Malformed rows are skipped and
// counted rather than aborting the whole read; the caller decides whether the
// skip count warrants attention. Rows are re-sorted on ingest since external
// files carry no ordering guarantee.
func ReadCSV(r io.Reader) (*Log, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // row width validated per record below

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 || header[0] != timestampColumn {
		return nil, 0, fmt.Errorf("malformed header: expected %q first, got %v", timestampColumn, header)
	}
	categories := header[1:]

	out := NewLog(categories)
	var rows []Row
	skipped := 0

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if len(record) != len(header) {
			skipped++
			continue
		}

		ts, err := strconv.ParseFloat(record[0], 64)
		if err != nil || ts < 0 {
			skipped++
			continue
		}

		flags := make(map[string]bool, len(categories))
		ok := true
		for i, c := range categories {
			v, err := strconv.ParseBool(record[i+1])
			if err != nil {
				ok = false
				break
			}
			flags[c] = v
		}
		if !ok {
			skipped++
			continue
		}

		rows = append(rows, Row{Timestamp: ts, Flags: flags})
	}

	for _, row := range rows {
		if err := out.Append(row.Timestamp, row.Flags); err != nil {
			// Out-of-order rows from a hand-edited file: re-sort and retry once.
			return readSorted(categories, rows), skipped, nil
		}
	}
	return out, skipped, nil
}

func readSorted(categories []string, rows []Row) *Log {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	out := NewLog(categories)
	for _, r := range sorted {
		if err := out.Append(r.Timestamp, r.Flags); err != nil {
			continue
		}
	}
	return out
}
