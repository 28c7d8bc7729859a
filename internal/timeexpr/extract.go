package timeexpr

import "regexp"

// surfacePattern finds time-like text inside a longer utterance. group selects
// which submatch is the candidate (0 for the whole match).
type surfacePattern struct {
	pattern *regexp.Regexp
	group   int
}

var surfacePatterns = []surfacePattern{
	{pattern: regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*[ap]\.?m\b\.?`)},
	{pattern: regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\b`)},
	{pattern: regexp.MustCompile(`(?i)\b\d{1,2}\s*[ap]\.?m\b\.?`)},
	{pattern: regexp.MustCompile(`(?i)\b(?:` + hourWordAlternation + `)(?:\s+o['’]?clock)?\s+(?:(?:in\s+the|at)\s+)?` +
		`(?:(?:morning|afternoon|evening|night)\b|[ap]\.?m\b\.?)`)},
	// A bare number only counts after a preposition ("at 9", "around 14").
	{pattern: regexp.MustCompile(`(?i)\b(?:at|for|around)\s+(\d{1,2})\b`), group: 1},
}

// Extract returns the time-like substring of text, ready for Normalize. When
// several candidates exist the earliest one wins, and at equal positions the
// longest. ok is false when the text holds nothing that looks like a time.
func Extract(text string) (candidate string, ok bool) {
	bestStart, bestEnd := -1, -1
	for _, sp := range surfacePatterns {
		for _, loc := range sp.pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2*sp.group], loc[2*sp.group+1]
			if start < 0 || splitsNumber(text, start, end) {
				continue
			}
			if bestStart < 0 || start < bestStart || (start == bestStart && end > bestEnd) {
				bestStart, bestEnd = start, end
			}
		}
	}
	if bestStart < 0 {
		return "", false
	}
	return text[bestStart:bestEnd], true
}

// splitsNumber reports whether text[start:end] is a fragment of a dotted
// number such as "9.30pm", which has no supported reading.
func splitsNumber(text string, start, end int) bool {
	if start >= 2 && text[start-1] == '.' && isDigit(text[start-2]) {
		return true
	}
	return end+1 < len(text) && text[end] == '.' && isDigit(text[end+1])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// ExtractAndNormalize runs Extract followed by Normalize. It returns
// ErrUnrecognizedTime (as a *NormalizationError) when no candidate is found.
func ExtractAndNormalize(text string) (string, error) {
	candidate, ok := Extract(text)
	if !ok {
		return "", &NormalizationError{Input: text, Reason: "no time found"}
	}
	return Normalize(candidate)
}
