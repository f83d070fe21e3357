package clip

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const (
	startToken = "<|startoftext|>"
	endToken   = "<|endoftext|>"
	wordEnd    = "</w>"
)

// wordPattern mirrors CLIP's pre-tokenization split: contractions, letter
// runs, digit runs, then anything else.
var wordPattern = regexp.MustCompile(`'s|'t|'re|'ve|'m|'ll|'d|[\p{L}]+|[\p{N}]+|[^\s\p{L}\p{N}]+`)

type mergePair struct {
	first, second string
}

// BPETokenizer implements CLIP's lowercased byte-pair encoding.
type BPETokenizer struct {
	vocab   map[string]int64
	ranks   map[mergePair]int
	startID int64
	endID   int64
}

// LoadBPETokenizer builds the tokenizer from vocab.json and merges.txt.
func LoadBPETokenizer(vocabPath, mergesPath string) (*BPETokenizer, error) {
	data, err := os.ReadFile(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	vocab := make(map[string]int64)
	if err := json.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("decode vocab: %w", err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("vocab is empty")
	}

	f, err := os.Open(mergesPath)
	if err != nil {
		return nil, fmt.Errorf("open merges: %w", err)
	}
	defer f.Close()

	ranks := make(map[mergePair]int)
	sc := bufio.NewScanner(f)
	rank := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}
		ranks[mergePair{parts[0], parts[1]}] = rank
		rank++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan merges: %w", err)
	}

	startID, ok := vocab[startToken]
	if !ok {
		return nil, fmt.Errorf("vocab missing %s", startToken)
	}
	endID, ok := vocab[endToken]
	if !ok {
		return nil, fmt.Errorf("vocab missing %s", endToken)
	}

	return &BPETokenizer{
		vocab:   vocab,
		ranks:   ranks,
		startID: startID,
		endID:   endID,
	}, nil
}

// Encode tokenizes text into a fixed-length id sequence plus attention mask.
// The sequence is wrapped in start/end markers and truncated so the end
// marker always survives.
func (t *BPETokenizer) Encode(text string, seqLen int) ([]int64, []int64) {
	ids := []int64{t.startID}

	clean := strings.ToLower(strings.Join(strings.Fields(text), " "))
	for _, word := range wordPattern.FindAllString(clean, -1) {
		for _, token := range t.bpe(word) {
			id, ok := t.vocab[token]
			if !ok {
				id = t.endID
			}
			ids = append(ids, id)
		}
	}

	if len(ids) > seqLen-1 {
		ids = ids[:seqLen-1]
	}
	ids = append(ids, t.endID)

	out := make([]int64, seqLen)
	mask := make([]int64, seqLen)
	for i, id := range ids {
		out[i] = id
		mask[i] = 1
	}
	return out, mask
}

// bpe splits a word into characters with a word-end marker on the last one,
// then greedily applies the lowest-ranked merge until none applies.
func (t *BPETokenizer) bpe(word string) []string {
	runes := []rune(word)
	if len(runes) == 0 {
		return nil
	}

	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = string(r)
	}
	parts[len(parts)-1] += wordEnd

	for len(parts) > 1 {
		bestRank := -1
		bestIdx := -1
		for i := 0; i < len(parts)-1; i++ {
			if rank, ok := t.ranks[mergePair{parts[i], parts[i+1]}]; ok {
				if bestRank == -1 || rank < bestRank {
					bestRank = rank
					bestIdx = i
				}
			}
		}
		if bestIdx == -1 {
			break
		}
		merged := parts[bestIdx] + parts[bestIdx+1]
		parts = append(parts[:bestIdx+1], parts[bestIdx+2:]...)
		parts[bestIdx] = merged
	}
	return parts
}
