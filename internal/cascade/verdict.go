package cascade

import "strings"

// State tracks one (sample, category) pair through the cascade.
// REJECTED, CONFIRMED and DENIED are terminal.
type State string

const (
	StateUnscreened  State = "UNSCREENED"
	StateBroadScored State = "BROAD_SCORED"
	StateRejected    State = "REJECTED"
	StateEscalated   State = "ESCALATED"
	StateConfirmed   State = "CONFIRMED"
	StateDenied      State = "DENIED"
)

// Verdict is the cascade's outcome for one (sample, category) pair.
type Verdict struct {
	Category   string
	State      State
	Score      float32
	Confidence float32
	// Explanation carries the raw confirmation text, when there was one.
	Explanation string
	// FailSafe marks verdicts produced by the timeout/unavailable policy
	// rather than by actual evidence.
	FailSafe bool
}

// Positive reports whether this verdict counts as "trigger present".
// Only CONFIRMED counts; DENIED and REJECTED are both negative.
func (v Verdict) Positive() bool {
	return v.State == StateConfirmed
}

// Lexical markers for classifying free-text confirmation answers. Order
// matters: affirmative markers are checked before negative ones, the same
// precedence the confirmation models were validated against.
var (
	affirmativeMarkers = []string{"yes", "correct", "affirmative", "indeed", "certainly"}
	emphaticMarkers    = []string{"definitely", "clearly", "obviously"}
	negativeMarkers    = []string{"no", "not", "negative", "cannot see", "don't see"}
	hedgingMarkers     = []string{"possibly", "maybe", "might", "unclear", "hard to tell"}
)

// classification is the parsed form of a confirmation answer.
type classification struct {
	confirmed   bool
	confidence  float32
	unparseable bool
}

// classifyResponse maps the model's free text onto a confirmed/denied call.
// Hedged answers resolve to confirmed at low confidence: for a content
// warning system, assuming presence under uncertainty is the safe direction.
func classifyResponse(text string) classification {
	text = strings.ToLower(strings.TrimSpace(text))

	if containsAny(text, affirmativeMarkers) {
		c := classification{confirmed: true, confidence: 0.85}
		if containsAny(text, emphaticMarkers) {
			c.confidence = 0.95
		}
		return c
	}

	if containsAny(text, negativeMarkers) {
		return classification{confirmed: false, confidence: 0.85}
	}

	if containsAny(text, hedgingMarkers) {
		return classification{confirmed: true, confidence: 0.5}
	}

	return classification{confirmed: false, confidence: 0.3, unparseable: true}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
