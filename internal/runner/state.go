package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// RunState is the resume checkpoint: how many samples each modality has
// committed to its detection log. A crash mid-run resumes after the last
// committed batch instead of rescoring the whole media.
type RunState struct {
	MediaName string         `json:"media_name"`
	Committed map[string]int `json:"committed"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// LoadState reads a checkpoint. A missing file yields a fresh state for the
// given media; a checkpoint for a different media is discarded.
func LoadState(path, mediaName string) (*RunState, error) {
	fresh := &RunState{MediaName: mediaName, Committed: map[string]int{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fresh, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st RunState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	if st.MediaName != mediaName {
		return fresh, nil
	}
	if st.Committed == nil {
		st.Committed = map[string]int{}
	}
	return &st, nil
}

// Save writes the checkpoint atomically via a temp file rename, so a crash
// during save never leaves a truncated checkpoint.
func (s *RunState) Save(path string) error {
	s.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}
