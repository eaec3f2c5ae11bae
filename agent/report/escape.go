package report

import "strings"

const EscapeMarker = `\`

// ReservedChars are the characters the chat markup treats as syntax.
const ReservedChars = "_*[]()~`>#+-=|.!:"

var escaper = newEscaper(ReservedChars)

func newEscaper(chars string) *strings.Replacer {
	pairs := make([]string, 0, 2*len(chars))
	for _, ch := range chars {
		pairs = append(pairs, string(ch), EscapeMarker+string(ch))
	}
	return strings.NewReplacer(pairs...)
}

// Escape prefixes every reserved character with a single escape marker. It
// is a single pass: run it once over the final text, never over its output.
func Escape(text string) string {
	return escaper.Replace(text)
}
