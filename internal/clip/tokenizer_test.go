package clip

import (
	"os"
	"path/filepath"
	"testing"
)

func testTokenizer(t *testing.T) *BPETokenizer {
	t.Helper()
	dir := t.TempDir()

	vocab := `{
		"<|startoftext|>": 0,
		"<|endoftext|>": 1,
		"a</w>": 2,
		"c": 3,
		"a": 4,
		"t</w>": 5,
		"ca": 6,
		"cat</w>": 7
	}`
	merges := "#version: 0.2\nc a\nca t</w>\n"

	vocabPath := filepath.Join(dir, "vocab.json")
	mergesPath := filepath.Join(dir, "merges.txt")
	if err := os.WriteFile(vocabPath, []byte(vocab), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	if err := os.WriteFile(mergesPath, []byte(merges), 0o644); err != nil {
		t.Fatalf("write merges: %v", err)
	}

	tok, err := LoadBPETokenizer(vocabPath, mergesPath)
	if err != nil {
		t.Fatalf("load tokenizer: %v", err)
	}
	return tok
}

func TestEncode_AppliesMergesAndWrapsSequence(t *testing.T) {
	tok := testTokenizer(t)

	ids, mask := tok.Encode("A  cat", 8)
	want := []int64{0, 2, 7, 1, 0, 0, 0, 0}
	wantMask := []int64{1, 1, 1, 1, 0, 0, 0, 0}

	if len(ids) != 8 || len(mask) != 8 {
		t.Fatalf("expected fixed length 8, got %d/%d", len(ids), len(mask))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d]: expected %d, got %d (full %v)", i, want[i], ids[i], ids)
		}
		if mask[i] != wantMask[i] {
			t.Fatalf("mask[%d]: expected %d, got %d (full %v)", i, wantMask[i], mask[i], mask)
		}
	}
}

func TestEncode_TruncationKeepsEndMarker(t *testing.T) {
	tok := testTokenizer(t)

	ids, mask := tok.Encode("a cat a cat a cat", 4)
	if len(ids) != 4 {
		t.Fatalf("expected length 4, got %d", len(ids))
	}
	if ids[0] != 0 {
		t.Errorf("sequence must start with the start marker, got %d", ids[0])
	}
	if ids[3] != 1 {
		t.Errorf("truncated sequence must end with the end marker, got %v", ids)
	}
	for i, m := range mask {
		if m != 1 {
			t.Errorf("mask[%d] must be 1 for a full sequence, got %v", i, mask)
		}
	}
}

func TestEncode_UnknownCharactersFallBack(t *testing.T) {
	tok := testTokenizer(t)

	ids, _ := tok.Encode("zzz", 8)
	// No merges apply and no "z" entries exist, so every piece falls back.
	for _, id := range ids[1:4] {
		if id != 1 {
			t.Fatalf("expected end-token fallback for unknown pieces, got %v", ids)
		}
	}
}

func TestLoadBPETokenizer_MissingSpecialTokens(t *testing.T) {
	dir := t.TempDir()
	vocabPath := filepath.Join(dir, "vocab.json")
	mergesPath := filepath.Join(dir, "merges.txt")
	os.WriteFile(vocabPath, []byte(`{"a</w>": 0}`), 0o644)
	os.WriteFile(mergesPath, []byte(""), 0o644)

	if _, err := LoadBPETokenizer(vocabPath, mergesPath); err == nil {
		t.Fatalf("expected error for vocab without start/end markers")
	}
}
