package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scenesafe/scenesafe/internal/cascade"
)

// Source supplies samples in timestamp order. Capture (frame extraction,
// audio chunking) is an external collaborator; the pipeline only consumes
// its output.
type Source interface {
	// Next returns the next sample. ok is false once the source is
	// exhausted.
	Next(ctx context.Context) (sample cascade.Sample, ok bool, err error)
}

// DirectorySource walks a directory of pre-extracted media samples named
// Name_HHMMSS_suffix.ext and yields them as file-path samples sorted by the
// embedded timestamp.
type DirectorySource struct {
	samples []cascade.Sample
	pos     int
}

var sampleExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".wav":  true,
	".mp3":  true,
}

// NewDirectorySource scans dir for sample files. Files without a parseable
// HHMMSS segment are skipped with their names reported, not fatal.
func NewDirectorySource(dir string) (*DirectorySource, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read sample dir: %w", err)
	}

	var samples []cascade.Sample
	var skipped []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !sampleExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		ts, err := parseSampleTimestamp(name)
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		samples = append(samples, cascade.Sample{
			Timestamp: ts,
			Content:   filepath.Join(dir, name),
		})
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].Timestamp < samples[j].Timestamp })
	return &DirectorySource{samples: samples}, skipped, nil
}

// Next implements Source.
func (s *DirectorySource) Next(ctx context.Context) (cascade.Sample, bool, error) {
	if err := ctx.Err(); err != nil {
		return cascade.Sample{}, false, err
	}
	if s.pos >= len(s.samples) {
		return cascade.Sample{}, false, nil
	}
	sample := s.samples[s.pos]
	s.pos++
	return sample, true, nil
}

// Len returns the total sample count.
func (s *DirectorySource) Len() int { return len(s.samples) }

// parseSampleTimestamp extracts the first underscore-delimited 6-digit
// HHMMSS segment of a sample filename and converts it to seconds.
func parseSampleTimestamp(filename string) (float64, error) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	for _, part := range strings.Split(base, "_") {
		if len(part) != 6 || !allDigits(part) {
			continue
		}
		h := int(part[0]-'0')*10 + int(part[1]-'0')
		m := int(part[2]-'0')*10 + int(part[3]-'0')
		s := int(part[4]-'0')*10 + int(part[5]-'0')
		if m >= 60 || s >= 60 {
			continue
		}
		return float64(h*3600 + m*60 + s), nil
	}
	return 0, fmt.Errorf("no HHMMSS segment in %q", filename)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
