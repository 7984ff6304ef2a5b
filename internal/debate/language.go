package debate

import (
	"regexp"
	"strings"
)

var languageHeaderRx = regexp.MustCompile(`(?i)^LANGUAGE:\s*([a-z]{2})\s*$`)

// ParseLanguageHeader extracts the LANGUAGE header the LLM emits on its first
// reply when the language is still "auto":
//
//	"LANGUAGE: es\nCon gusto tomaré el lado PRO..."  →  ("es", "Con gusto...")
//
// When no header is present the language defaults to "en" and the reply is
// returned trimmed but otherwise untouched.
func ParseLanguageHeader(reply string) (lang, rest string) {
	if strings.TrimSpace(reply) == "" {
		return fallbackLang, ""
	}

	first, remainder, _ := strings.Cut(reply, "\n")
	if m := languageHeaderRx.FindStringSubmatch(strings.TrimSpace(first)); m != nil {
		return strings.ToLower(m[1]), strings.TrimSpace(remainder)
	}
	return fallbackLang, strings.TrimSpace(reply)
}
