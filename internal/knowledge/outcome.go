package knowledge

import (
	"fmt"
	"strings"
)

// OutcomeKind classifies an operation result.
type OutcomeKind int

const (
	// KindOK is a completed operation.
	KindOK OutcomeKind = iota
	// KindReviewRequired is a deferred write awaiting human approval.
	// It is not an error: the caller may resubmit with adjusted scores.
	KindReviewRequired
	// KindNotFound is a recoverable missing-item condition.
	KindNotFound
	// KindError is any other failure, already logged at the operation.
	KindError
)

// Outcome is the tagged result of every public knowledge operation. The
// callers of this core are language-model tool invocations that consume free
// text, so Render converts the variants to the string contract; the
// structured fields exist for in-process callers and tests.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	// Reasons holds the review gate's reasons when Kind is KindReviewRequired.
	Reasons []string
}

// Render produces the wire string: the message, prefixed with
// "REVIEW_REQUIRED: " or "Error: " for the deferral and failure variants.
func (o Outcome) Render() string {
	switch o.Kind {
	case KindReviewRequired:
		return "REVIEW_REQUIRED: " + o.Message
	case KindError:
		return "Error: " + o.Message
	default:
		return o.Message
	}
}

// Success builds an OK outcome.
func Success(format string, a ...any) Outcome {
	return Outcome{Kind: KindOK, Message: fmt.Sprintf(format, a...)}
}

// ReviewNeeded builds a deferred-write outcome carrying the gate's reasons.
func ReviewNeeded(reasons []string, format string, a ...any) Outcome {
	return Outcome{Kind: KindReviewRequired, Reasons: reasons, Message: fmt.Sprintf(format, a...)}
}

// NotFoundf builds a recoverable missing-item outcome.
func NotFoundf(format string, a ...any) Outcome {
	return Outcome{Kind: KindNotFound, Message: fmt.Sprintf(format, a...)}
}

// Failure builds an error outcome.
func Failure(format string, a ...any) Outcome {
	return Outcome{Kind: KindError, Message: fmt.Sprintf(format, a...)}
}

// preview bounds content echoed back in review explanations.
func preview(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
