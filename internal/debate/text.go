package debate

import (
	"regexp"
	"strings"
)

var (
	// wordRx matches alphabetic word tokens in any script; digits, dashes,
	// and underscores are not words.
	wordRx = regexp.MustCompile(`\p{L}+`)

	// questionRx matches text whose last non-space rune is a question mark.
	questionRx = regexp.MustCompile(`[¿?]\s*$`)

	// endMarkersRx matches the phrases an LLM might emit to declare the
	// debate over. Only the server is allowed to do that, so these are
	// stripped from every reply. Deliberately conservative: exact phrases
	// only, no partial-match variants.
	endMarkersRx = regexp.MustCompile(`(?i)(match concluded\.?|debate concluded|debate is over)`)

	spacesRx         = regexp.MustCompile(`\s+`)
	trailingDotsRx   = regexp.MustCompile(`\.\.+$`)
	sentenceEndRunes = ".!?¡¿"
)

// WordCount counts alphabetic word tokens in text.
func WordCount(text string) int {
	return len(wordRx.FindAllString(text, -1))
}

// IsQuestion reports whether text ends with a question mark.
func IsQuestion(text string) bool {
	return questionRx.MatchString(text)
}

// NormalizeSpaces collapses all whitespace runs to single spaces and trims.
func NormalizeSpaces(s string) string {
	return strings.TrimSpace(spacesRx.ReplaceAllString(s, " "))
}

// SanitizeEndMarkers removes end-marker phrases from an LLM reply and
// normalizes the remaining whitespace. Sanitizing an already-sanitized
// string is a fixed point.
func SanitizeEndMarkers(text string) string {
	return NormalizeSpaces(endMarkersRx.ReplaceAllString(text, ""))
}

// SplitSentences splits text after runs of terminal punctuation followed by
// whitespace. Inverted Spanish marks count as terminators so "¡Claro! ¿Y qué?"
// splits the same way as its English counterpart.
func SplitSentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !strings.ContainsRune(sentenceEndRunes, runes[i]) {
			continue
		}
		// Consume the punctuation run.
		j := i
		for j+1 < len(runes) && strings.ContainsRune(sentenceEndRunes, runes[j+1]) {
			j++
		}
		// A sentence boundary needs trailing whitespace or end of text.
		if j+1 < len(runes) && runes[j+1] != ' ' && runes[j+1] != '\n' && runes[j+1] != '\t' {
			i = j
			continue
		}
		if s := strings.TrimSpace(string(runes[start : j+1])); s != "" {
			out = append(out, s)
		}
		start = j + 1
		i = j
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// DropQuestions removes question sentences from text. If every sentence is a
// question the original text is returned unchanged, so NLI never scores an
// empty premise.
func DropQuestions(text string) string {
	sents := SplitSentences(text)
	kept := sents[:0]
	for _, s := range sents {
		if !IsQuestion(s) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return text
	}
	out := strings.Join(kept, " ")
	return strings.TrimSpace(trailingDotsRx.ReplaceAllString(out, "."))
}

// Truncate shortens s for log lines.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
