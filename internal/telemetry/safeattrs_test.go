package telemetry

import (
	"testing"
)

func TestSafeAttributesFiltersMediaText(t *testing.T) {
	kvs := map[string]interface{}{
		"prompt":       "should drop",
		"raw_response": "drop",
		"frame_path":   "/tmp/frame_001.jpg",
		"category":     "Violence",
		"long_string":  string(make([]byte, 600)),
		"escalated":    true,
		"sample_sec":   12.0,
		"batch_size":   8,
	}

	attrs := SafeAttributes(kvs)
	for _, a := range attrs {
		switch string(a.Key) {
		case "prompt", "raw_response", "frame_path":
			t.Fatalf("unexpected unsafe attribute %s", a.Key)
		case "long_string":
			t.Fatalf("expected long string to be skipped")
		}
	}

	byKey := map[string]bool{}
	for _, a := range attrs {
		byKey[string(a.Key)] = true
	}
	for _, want := range []string{"category", "escalated", "sample_sec", "batch_size"} {
		if !byKey[want] {
			t.Errorf("expected safe attribute %s to survive", want)
		}
	}
}
