package intervals

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Interval is a padded detection window in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Merge converts discrete positive-detection timestamps into a minimal set of
// padded, non-overlapping intervals. Each timestamp becomes
// [max(0, t-padding), t+padding]; adjacent windows closer than minGap are
// folded into one. Input order does not matter; duplicates are ignored.
func Merge(timestamps []float64, padding, minGap float64) []Interval {
	if len(timestamps) == 0 {
		return nil
	}
	if padding < 0 {
		padding = 0
	}
	if minGap < 0 {
		minGap = 0
	}

	unique := make([]float64, 0, len(timestamps))
	seen := make(map[float64]struct{}, len(timestamps))
	for _, ts := range timestamps {
		if _, ok := seen[ts]; ok {
			continue
		}
		seen[ts] = struct{}{}
		unique = append(unique, ts)
	}
	sort.Float64s(unique)

	merged := make([]Interval, 0, len(unique))
	open := Interval{Start: clampStart(unique[0]-padding), End: unique[0] + padding}

	for _, ts := range unique[1:] {
		start := clampStart(ts - padding)
		end := ts + padding

		if start <= open.End+minGap {
			if end > open.End {
				open.End = end
			}
			continue
		}

		merged = append(merged, open)
		open = Interval{Start: start, End: end}
	}
	merged = append(merged, open)

	return merged
}

func clampStart(s float64) float64 {
	if s < 0 {
		return 0
	}
	return s
}

// FormatTime renders seconds as zero-padded HH:MM:SS. Negative input clamps
// to zero. Runs are assumed to stay under 100 hours.
func FormatTime(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ParseTime converts "HH:MM:SS", "MM:SS", or plain seconds back to seconds.
func ParseTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch len(parts) {
	case 3:
		h, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("parse hours %q: %w", parts[0], err)
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("parse minutes %q: %w", parts[1], err)
		}
		sec, err := strconv.Atoi(parts[2])
		if err != nil {
			return 0, fmt.Errorf("parse seconds %q: %w", parts[2], err)
		}
		return h*3600 + m*60 + sec, nil
	case 2:
		m, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("parse minutes %q: %w", parts[0], err)
		}
		sec, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("parse seconds %q: %w", parts[1], err)
		}
		return m*60 + sec, nil
	case 1:
		sec, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("parse seconds %q: %w", parts[0], err)
		}
		return sec, nil
	default:
		return 0, fmt.Errorf("malformed time string %q", s)
	}
}

// Render serializes intervals as "HH:MM:SS-HH:MM:SS" joined with ';'.
// An empty set renders as the empty string.
func Render(set []Interval) string {
	if len(set) == 0 {
		return ""
	}
	parts := make([]string, 0, len(set))
	for _, iv := range set {
		parts = append(parts, FormatTime(iv.Start)+"-"+FormatTime(iv.End))
	}
	return strings.Join(parts, ";")
}
