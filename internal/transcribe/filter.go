package transcribe

import (
	"strings"
	"unicode"
)

// hallucinationBlocklist holds stock phrases Whisper emits on silence or
// noise, lowercased for matching.
var hallucinationBlocklist = map[string]struct{}{
	"thank you for watching":     {},
	"thanks for watching":        {},
	"please subscribe":           {},
	"thanks for listening":       {},
	"thank you for listening":    {},
	"please like and subscribe":  {},
	"see you in the next video":  {},
	"see you next time":          {},
	"don't forget to subscribe":  {},
	"like comment and subscribe": {},
	"subscribe to my channel":    {},
}

// filterHallucinations rejects transcripts that are model artifacts rather
// than speech: blocklisted stock phrases, music-note output, text with no
// alphanumeric content, and short phrases stuttered three or more times.
// It returns the empty string for rejected text.
func filterHallucinations(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	normalized := strings.TrimRight(strings.ToLower(text), ".!?,")
	if _, blocked := hallucinationBlocklist[normalized]; blocked {
		return ""
	}

	if strings.ContainsAny(text, "♪♫") {
		return ""
	}

	hasAlnum := false
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			hasAlnum = true
			break
		}
	}
	if !hasAlnum {
		return ""
	}

	if hasRepetition(strings.ToLower(text)) {
		return ""
	}

	return text
}

// hasRepetition reports whether s contains a unit of 4+ bytes repeated 3 or
// more times back to back, the signature of a decoding loop.
func hasRepetition(s string) bool {
	n := len(s)
	for unit := 4; unit*3 <= n; unit++ {
		for start := 0; start+unit*3 <= n; start++ {
			seg := s[start : start+unit]
			if seg == s[start+unit:start+2*unit] && seg == s[start+2*unit:start+3*unit] {
				return true
			}
		}
	}
	return false
}
