package confirm

import (
	"context"
	"sync"
	"time"
)

// FakeConfirmer is a scripted Confirmer for tests. It is safe for the
// concurrent calls the cascade issues within a batch.
type FakeConfirmer struct {
	// ResponseText is returned for every prompt unless Responses has an entry
	// for it.
	ResponseText string
	// Responses maps prompt text to a scripted answer.
	Responses map[string]string
	// Error, when set, is returned instead of a result.
	Error error
	// Down makes Available report false.
	Down bool

	mu    sync.Mutex
	calls []string
}

func (f *FakeConfirmer) Confirm(_ context.Context, _ any, prompt string) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()

	if f.Error != nil {
		return nil, f.Error
	}

	text := f.ResponseText
	if scripted, ok := f.Responses[prompt]; ok {
		text = scripted
	}
	return &Result{Text: text, Latency: 5 * time.Millisecond}, nil
}

func (f *FakeConfirmer) Available(_ context.Context) bool {
	return !f.Down
}

// Calls returns a copy of every prompt seen so far, in call order.
func (f *FakeConfirmer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// NewFake returns a FakeConfirmer answering text for every prompt.
func NewFake(text string) *FakeConfirmer {
	return &FakeConfirmer{ResponseText: text}
}
