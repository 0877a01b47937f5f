package transform

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// Lower-case letter right after a paragraph prefix.
	afterPrefixRe = regexp.MustCompile(`(?m)^\d+:\d{2}:\d{2}(?:\.\d+)? S[^\s:]+:[ \t]*(\p{Ll})`)
	// Lower-case letter after sentence-ending punctuation and whitespace.
	afterSentenceRe = regexp.MustCompile(`[.!?]["'”’)]*[ \t\n]+(\p{Ll})`)
	// Lower-case letter at the start of a line.
	lineStartRe = regexp.MustCompile(`(?m)^[ \t]*(\p{Ll})`)
)

// Capitalize upper-cases the first letter after a paragraph prefix, after
// sentence-ending punctuation followed by whitespace, and at the start of
// every line. Text that is already capitalized is returned unchanged.
func Capitalize(text string) string {
	for _, re := range []*regexp.Regexp{afterPrefixRe, afterSentenceRe, lineStartRe} {
		text = upperGroup(re, text)
	}
	return text
}

// upperGroup upper-cases the first capture group of every match of re.
func upperGroup(re *regexp.Regexp, text string) string {
	idx := re.FindAllStringSubmatchIndex(text, -1)
	if len(idx) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, m := range idx {
		start := m[2]
		r, size := utf8.DecodeRuneInString(text[start:])
		b.WriteString(text[prev:start])
		b.WriteRune(unicode.ToUpper(r))
		prev = start + size
	}
	b.WriteString(text[prev:])
	return b.String()
}
