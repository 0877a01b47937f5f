// Package transform holds the stateless rewriting operations of the
// transcript editor: capitalization, sentence-aware paragraph repair,
// paragraph joins, cue and filler removal, timestamp shifting, speaker label
// replacement and snippet extraction, plus the whole-word find helpers shared
// with find/replace and multi-occurrence editing.
//
// Every operation takes the full document text and returns the full rewritten
// text, so the caller can apply it with one buffer replacement (one undo
// step). Selection-scoped operations refuse to run on an empty selection and
// return [ErrEmptySelection] instead of silently rewriting the whole document.
//
// Positions and selections are measured in runes.
package transform

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/scribe/internal/document"
)

var (
	// ErrEmptySelection is returned by selection-scoped operations when no
	// text is selected.
	ErrEmptySelection = errors.New("transform: select the text to change first")

	// ErrEmptyTerm is returned when a search term or label is empty.
	ErrEmptyTerm = errors.New("transform: term must not be empty")
)

// prefixRe matches the paragraph timestamp + speaker prefix of a line,
// including the whitespace that separates it from the body.
var prefixRe = regexp.MustCompile(`^(\d+:\d{2}:\d{2}(?:\.\d+)?) (S[^\s:]+):[ \t]*`)

// line is one "\n"-separated line of the document.
type line struct {
	start, end int // rune offsets, end exclusive, newline not included
	text       string
}

// para is a line split into its timestamp prefix and body.
type para struct {
	prefix string // "0:00:01.0 S1:" without trailing space, "" if none
	label  string
	body   string
}

func splitLines(text string) []line {
	var out []line
	pos := 0
	for _, s := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(s)
		out = append(out, line{start: pos, end: pos + n, text: s})
		pos += n + 1
	}
	return out
}

func parsePara(s string) para {
	m := prefixRe.FindStringSubmatchIndex(s)
	if m == nil {
		return para{body: strings.TrimSpace(s)}
	}
	return para{
		prefix: s[m[2]:m[5]] + ":",
		label:  s[m[4]:m[5]],
		body:   strings.TrimSpace(s[m[1]:]),
	}
}

func (p para) String() string {
	switch {
	case p.prefix == "":
		return p.body
	case p.body == "":
		return p.prefix
	}
	return p.prefix + " " + p.body
}

// separator returns the paragraph separator used by text: a blank line when
// the document contains one, a single newline otherwise.
func separator(text string) string {
	if strings.Contains(text, "\n\n") {
		return "\n\n"
	}
	return "\n"
}

// selectedLines returns the indices of non-empty lines overlapping sel.
func selectedLines(lines []line, sel document.Selection) []int {
	var out []int
	for i, l := range lines {
		if strings.TrimSpace(l.text) == "" {
			continue
		}
		if l.start < sel.End() && l.end > sel.Index {
			out = append(out, i)
		}
	}
	return out
}

// spliceRunes replaces the rune range [from, to) of text with repl.
func spliceRunes(text string, from, to int, repl string) string {
	r := []rune(text)
	from = max(0, min(from, len(r)))
	to = max(from, min(to, len(r)))
	return string(r[:from]) + repl + string(r[to:])
}

func checkSelection(sel document.Selection) error {
	if sel.Length <= 0 {
		return ErrEmptySelection
	}
	return nil
}

// lowerFirst lower-cases the first letter of s when it looks like an
// automatic sentence capital. "I", "I'm" and acronyms are left alone.
func lowerFirst(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError || !unicode.IsUpper(first) {
		return s
	}
	word := s
	if i := strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsPunct(r) && r != '\'' }); i >= 0 {
		word = s[:i]
	}
	if word == "I" || strings.HasPrefix(word, "I'") {
		return s
	}
	upper := 0
	for _, r := range word {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if upper > 1 {
		return s
	}
	return string(unicode.ToLower(first)) + s[size:]
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
