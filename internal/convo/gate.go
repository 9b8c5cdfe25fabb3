package convo

import "strings"

// Decision is the outcome of evaluating a transcript against the
// activation phrase.
type Decision int

const (
	// DecisionIgnore means the transcript does not affect arming.
	DecisionIgnore Decision = iota
	// DecisionArm means the phrase was heard while disarmed.
	DecisionArm
	// DecisionAlreadyArmed means the phrase was heard while armed.
	// Arming is idempotent, so no re-confirmation is spoken, but the
	// transcript is still dispatchable as user content.
	DecisionAlreadyArmed
)

func (d Decision) String() string {
	switch d {
	case DecisionArm:
		return "arm"
	case DecisionAlreadyArmed:
		return "already_armed"
	default:
		return "ignore"
	}
}

// EvaluateActivation decides whether a transcript arms the session.
// Matching is case-insensitive substring containment, since
// recognizers routinely prepend filler words around the phrase.
// An empty transcript never arms.
func EvaluateActivation(transcript, phrase string, armed bool) Decision {
	transcript = strings.ToLower(strings.TrimSpace(transcript))
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if transcript == "" || phrase == "" {
		return DecisionIgnore
	}
	if !strings.Contains(transcript, phrase) {
		return DecisionIgnore
	}
	if armed {
		return DecisionAlreadyArmed
	}
	return DecisionArm
}

// ContainsStopPhrase reports whether the transcript asks the system to
// stand down. Same containment rules as activation matching.
func ContainsStopPhrase(transcript, stopPhrase string) bool {
	transcript = strings.ToLower(strings.TrimSpace(transcript))
	stopPhrase = strings.ToLower(strings.TrimSpace(stopPhrase))
	if transcript == "" || stopPhrase == "" {
		return false
	}
	return strings.Contains(transcript, stopPhrase)
}
