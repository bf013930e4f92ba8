package knowledge

import "fmt"

// Thresholds are the configured minimum scores a write must carry to be
// persisted without human review.
type Thresholds struct {
	Confidence float64
	Relevance  float64
}

// Decision is the review gate's verdict on a proposed write.
type Decision struct {
	Allowed bool
	// Reasons lists each score that fell strictly below its threshold, in
	// fixed confidence-then-relevance order. Empty when Allowed.
	Reasons []string
}

// Evaluate gates a proposed write against the thresholds. It is pure and
// deterministic; score range validation happens in the data model, not here.
func (t Thresholds) Evaluate(confidence, relevance float64) Decision {
	var reasons []string
	if confidence < t.Confidence {
		reasons = append(reasons, fmt.Sprintf("confidence (%.2f) below threshold (%g)", confidence, t.Confidence))
	}
	if relevance < t.Relevance {
		reasons = append(reasons, fmt.Sprintf("relevance (%.2f) below threshold (%g)", relevance, t.Relevance))
	}
	return Decision{Allowed: len(reasons) == 0, Reasons: reasons}
}
