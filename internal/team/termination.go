package team

import (
	"fmt"
	"strings"

	"stockteam/internal/agent"
)

// Condition decides whether a run should stop after the latest message.
// Conditions only look at the transcript, so a team can be re-run without
// resetting them.
type Condition interface {
	Check(transcript []agent.Message) (reason string, stop bool)
}

// ConditionFunc adapts a plain function to Condition.
type ConditionFunc func(transcript []agent.Message) (string, bool)

func (f ConditionFunc) Check(transcript []agent.Message) (string, bool) { return f(transcript) }

// TextMention stops the run once any message contains phrase.
func TextMention(phrase string) Condition {
	return ConditionFunc(func(transcript []agent.Message) (string, bool) {
		if phrase == "" {
			return "", false
		}
		for _, m := range transcript {
			if strings.Contains(m.Content, phrase) {
				return fmt.Sprintf("Text '%s' mentioned", phrase), true
			}
		}
		return "", false
	})
}

// MaxMessages stops the run once the transcript, task included, holds n
// messages. n <= 0 never fires.
func MaxMessages(n int) Condition {
	return ConditionFunc(func(transcript []agent.Message) (string, bool) {
		if n <= 0 || len(transcript) < n {
			return "", false
		}
		return fmt.Sprintf("Maximum number of messages %d reached, current message count: %d", n, len(transcript)), true
	})
}

// Or fires when any of conds fires, reporting the first one's reason.
func Or(conds ...Condition) Condition {
	return ConditionFunc(func(transcript []agent.Message) (string, bool) {
		for _, c := range conds {
			if reason, ok := c.Check(transcript); ok {
				return reason, true
			}
		}
		return "", false
	})
}

// And fires only when every one of conds fires.
func And(conds ...Condition) Condition {
	return ConditionFunc(func(transcript []agent.Message) (string, bool) {
		if len(conds) == 0 {
			return "", false
		}
		reasons := make([]string, 0, len(conds))
		for _, c := range conds {
			reason, ok := c.Check(transcript)
			if !ok {
				return "", false
			}
			reasons = append(reasons, reason)
		}
		return strings.Join(reasons, "; "), true
	})
}
