package debate

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Claim extraction pulls the assertive declarative sentences out of the
// previous bot message so the orchestrator can score each one against the
// user's reply. Stance headers, trailing questions, and acknowledgment
// openers carry no arguable content and are discarded.

// minClaimWords is the floor below which a sentence is too thin to score.
const minClaimWords = 3

// ackOpeners are phrases a debating bot uses to acknowledge partial merit.
// Sentences starting with one of these (modulo typos and inflection, hence
// the fuzzy comparison) are concessive framing, not claims.
var ackOpeners = []string{
	"you're right",
	"you are right",
	"i agree",
	"that's true",
	"that is true",
	"fair point",
	"good point",
	"tienes razón",
	"estoy de acuerdo",
}

// ackFuzzyThreshold is the Jaro-Winkler similarity above which a sentence
// opener counts as an acknowledgment.
const ackFuzzyThreshold = 0.90

// ExtractClaims returns the scoreable claims of a bot message, in order.
//
// When the message has at least three sentences and the last is a question,
// the first and last sentences are dropped as the stance header and the
// probing question of the reply shape the prompts enforce; the first
// sentence itself is not checked for being a stance header.
// Remaining sentences are kept if they are declarative, open with no
// acknowledgment, and have at least minClaimWords words.
func ExtractClaims(botText string) []string {
	sents := SplitSentences(NormalizeSpaces(botText))

	// Drop the stance header and the trailing question only when the message
	// is long enough to carry both around a body.
	if len(sents) >= 3 && IsQuestion(sents[len(sents)-1]) {
		sents = sents[1 : len(sents)-1]
	}

	claims := make([]string, 0, len(sents))
	for _, s := range sents {
		if IsQuestion(s) {
			continue
		}
		if isAcknowledgment(s) {
			continue
		}
		if WordCount(s) < minClaimWords {
			continue
		}
		claims = append(claims, s)
	}
	return claims
}

// isAcknowledgment reports whether the sentence opens with an acknowledgment
// phrase. Comparison is fuzzy so "Youre right about X" still matches.
func isAcknowledgment(sentence string) bool {
	lower := strings.ToLower(strings.TrimLeft(sentence, "¡¿ "))
	for _, opener := range ackOpeners {
		if strings.HasPrefix(lower, opener) {
			return true
		}
		head := lower
		if len(head) > len(opener) {
			head = head[:len(opener)]
		}
		if matchr.JaroWinkler(head, opener, false) >= ackFuzzyThreshold {
			return true
		}
	}
	return false
}
