// Package report turns a finalized detection log into the one-row-per-media
// report consumed by the content-warning database.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/scenesafe/scenesafe/internal/detlog"
	"github.com/scenesafe/scenesafe/internal/intervals"
	"github.com/scenesafe/scenesafe/internal/trigger"
)

// Options controls interval merging for the report.
type Options struct {
	// PaddingSeconds widens each detection before/after as a safety margin.
	PaddingSeconds float64
	// MinGapSeconds folds intervals closer than this into one.
	MinGapSeconds float64
}

// Row is one media item's report entry. TimestampsByColumn maps a category's
// report column to its rendered interval string ("" when nothing was found).
type Row struct {
	Name               string
	ExternalID         string
	TimestampsByColumn map[string]string
}

// Build merges the log's positive detections per category into rendered
// interval strings, one entry per registered category.
func Build(l *detlog.Log, reg *trigger.Registry, mediaName, externalID string, opts Options) *Row {
	row := &Row{
		Name:               mediaName,
		ExternalID:         externalID,
		TimestampsByColumn: make(map[string]string, len(reg.Names())),
	}

	for _, cat := range reg.All() {
		ts := l.PositiveTimestamps(cat.Name)
		merged := intervals.Merge(ts, opts.PaddingSeconds, opts.MinGapSeconds)
		row.TimestampsByColumn[cat.Column] = intervals.Render(merged)
	}

	return row
}

// WriteCSV serializes report rows with a stable column order: Name,
// ExternalID, then one timestamps column per category in registry order.
func WriteCSV(w io.Writer, reg *trigger.Registry, rows []*Row) error {
	cw := csv.NewWriter(w)

	columns := reg.Columns()
	header := append([]string{"Name", "ExternalID"}, columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range rows {
		record[0] = row.Name
		record[1] = row.ExternalID
		for i, col := range columns {
			record[i+2] = row.TimestampsByColumn[col]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %q: %w", row.Name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
