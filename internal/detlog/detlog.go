// Package detlog holds the per-run detection log: one committed row per
// analyzed sample, one boolean per category, accumulated in timestamp order
// and consumed by the interval merger once the run finalizes.
package detlog

import (
	"errors"
	"fmt"
	"sort"
)

// Row is one committed sample: a timestamp and a flag per category. A row is
// only appended once every category has a value, so a partially processed
// sample never leaks into the log.
type Row struct {
	Timestamp float64
	Flags     map[string]bool
}

// Log is the append-only detection log for a single run. It is owned by one
// run invocation and never shared across goroutines.
type Log struct {
	categories []string
	rows       []Row
	finalized  bool
}

// ErrFinalized is returned when appending to a finalized log.
var ErrFinalized = errors.New("detection log is finalized")

// NewLog creates an empty log for the given category set.
func NewLog(categories []string) *Log {
	cats := make([]string, len(categories))
	copy(cats, categories)
	return &Log{categories: cats}
}

// Categories returns the category order used by the log.
func (l *Log) Categories() []string {
	out := make([]string, len(l.categories))
	copy(out, l.categories)
	return out
}

// Append commits one row. Rows must arrive in non-decreasing timestamp order
// and must carry a flag for every category.
func (l *Log) Append(ts float64, flags map[string]bool) error {
	if l.finalized {
		return ErrFinalized
	}
	if ts < 0 {
		return fmt.Errorf("negative timestamp %v", ts)
	}
	if n := len(l.rows); n > 0 && ts < l.rows[n-1].Timestamp {
		return fmt.Errorf("timestamp %v out of order (last %v)", ts, l.rows[n-1].Timestamp)
	}

	row := Row{Timestamp: ts, Flags: make(map[string]bool, len(l.categories))}
	for _, c := range l.categories {
		v, ok := flags[c]
		if !ok {
			return fmt.Errorf("row at %v missing category %q", ts, c)
		}
		row.Flags[c] = v
	}

	l.rows = append(l.rows, row)
	return nil
}

// Finalize freezes the log. Further appends fail.
func (l *Log) Finalize() { l.finalized = true }

// Len returns the number of committed rows.
func (l *Log) Len() int { return len(l.rows) }

// Rows returns the committed rows in order.
func (l *Log) Rows() []Row { return l.rows }

// PositiveTimestamps returns a sorted list of timestamps where the category
// was flagged.
func (l *Log) PositiveTimestamps(category string) []float64 {
	var out []float64
	for _, r := range l.rows {
		if r.Flags[category] {
			out = append(out, r.Timestamp)
		}
	}
	sort.Float64s(out)
	return out
}

// FuseOr combines two modality logs into one by OR-ing the named fusion
// categories per timestamp. Rows are matched by exact timestamp; a timestamp
// present in only one log is kept, with the missing side treated as all
// false (outer-join semantics). Never AND: off-screen retching is audible
// but invisible, and a muted clip is visible but silent.
func FuseOr(visual, audio *Log, fusionCategories []string) *Log {
	if audio == nil || audio.Len() == 0 {
		return visual
	}

	fusion := make(map[string]bool, len(fusionCategories))
	for _, c := range fusionCategories {
		fusion[c] = true
	}

	audioByTS := make(map[float64]Row, audio.Len())
	for _, r := range audio.Rows() {
		audioByTS[r.Timestamp] = r
	}

	seen := make(map[float64]bool, visual.Len())
	out := NewLog(visual.categories)

	for _, vr := range visual.Rows() {
		seen[vr.Timestamp] = true
		flags := make(map[string]bool, len(visual.categories))
		ar, matched := audioByTS[vr.Timestamp]
		for _, c := range visual.categories {
			v := vr.Flags[c]
			if fusion[c] && matched {
				v = v || ar.Flags[c]
			}
			flags[c] = v
		}
		// Visual rows arrive sorted, so appends stay in order.
		if err := out.Append(vr.Timestamp, flags); err != nil {
			continue
		}
	}

	// Audio-only timestamps: fusion categories carry the audio verdict,
	// everything else is false.
	var extra []Row
	for _, ar := range audio.Rows() {
		if seen[ar.Timestamp] {
			continue
		}
		flags := make(map[string]bool, len(visual.categories))
		for _, c := range visual.categories {
			flags[c] = fusion[c] && ar.Flags[c]
		}
		extra = append(extra, Row{Timestamp: ar.Timestamp, Flags: flags})
	}
	if len(extra) == 0 {
		return out
	}

	merged := append(out.rows, extra...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp < merged[j].Timestamp })

	final := NewLog(visual.categories)
	final.rows = merged
	return final
}
