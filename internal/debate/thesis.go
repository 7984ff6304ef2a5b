package debate

import (
	"regexp"
	"strings"
)

// Thesis canonicalization: the NLI probes need a single clean declarative
// sentence per polarity. Users write topics like "I think that dogs are
// humans' best friend, because..." — the meta-markers and trailing clauses
// only add neutral mass to the NLI scores, so they are stripped before the
// polarity transform.

var (
	metaMarkerRx  = regexp.MustCompile(`(?i)\b(language|side|topic)\s*:\s*`)
	beliefRx      = regexp.MustCompile(`(?i)^\s*i\s+(think|believe)\s+(that\s+)?`)
	clauseSplitRx = regexp.MustCompile(`[,;:]`)

	isRx       = regexp.MustCompile(`(?i)^(.+?)\s+is\s+(.+)$`)
	isNotRx    = regexp.MustCompile(`(?i)^(.+?)\s+is\s+not\s+(.+)$`)
	existsRx   = regexp.MustCompile(`(?i)^(.+?)\s+exists?$`)
	notExistRx = regexp.MustCompile(`(?i)^(.+?)\s+do(?:es)?\s+not\s+exist$`)

	notCaseRx = regexp.MustCompile(`(?i)^it is not the case that\s+`)
)

// CanonicalTopic cleans a raw topic down to its first clause: meta markers
// and "I think/believe" openers removed, trailing punctuation trimmed.
// Applying it twice returns the same string.
func CanonicalTopic(topic string) string {
	t := NormalizeSpaces(topic)
	t = metaMarkerRx.ReplaceAllString(t, "")
	t = beliefRx.ReplaceAllString(t, "")
	if loc := clauseSplitRx.FindStringIndex(t); loc != nil {
		t = t[:loc[0]]
	}
	return strings.Trim(t, " .!?")
}

// PolarityVariants returns the positive and negative renderings of a
// canonical topic using surface-syntactic transforms:
//
//	"X is Y"      ↔ "X is not Y"
//	"X exists"    ↔ "X does not exist"
//	fallback: "X." ↔ "It is not the case that X."
//
// A topic that already carries negation is normalized back to its positive
// form first, so the transform is idempotent.
func PolarityVariants(topic string) (positive, negative string) {
	t := CanonicalTopic(topic)

	// Normalize an already-negative topic to its positive form.
	switch {
	case notCaseRx.MatchString(t):
		t = strings.Trim(notCaseRx.ReplaceAllString(t, ""), " .")
	case isNotRx.MatchString(t):
		m := isNotRx.FindStringSubmatch(t)
		t = m[1] + " is " + m[2]
	case notExistRx.MatchString(t):
		m := notExistRx.FindStringSubmatch(t)
		t = m[1] + " exists"
	}

	switch {
	case isNotRx.MatchString(t):
		// Still negative after normalization ("X is not not Y" oddities):
		// fall through to the generic forms below.
	case isRx.MatchString(t):
		m := isRx.FindStringSubmatch(t)
		return t + ".", m[1] + " is not " + m[2] + "."
	case existsRx.MatchString(t):
		m := existsRx.FindStringSubmatch(t)
		return m[1] + " exists.", m[1] + " does not exist."
	}
	return t + ".", "It is not the case that " + t + "."
}

// BotThesis returns the one-sentence proposition the bot defends: the
// positive polarity variant for PRO, the negative one for CON.
func BotThesis(topic string, stance Stance) string {
	positive, negative := PolarityVariants(topic)
	if stance == StancePro {
		return positive
	}
	return negative
}

// UserThesis returns the proposition the user is implicitly defending — the
// opposite polarity of the bot's.
func UserThesis(topic string, stance Stance) string {
	return BotThesis(topic, stance.Opposite())
}
