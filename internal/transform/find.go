package transform

import (
	"unicode"
)

// Match is a rune range of the document.
type Match struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

// End returns the rune offset just past the match.
func (m Match) End() int { return m.Index + m.Length }

// FindOptions controls [FindAll].
type FindOptions struct {
	// CaseSensitive requires an exact case match.
	CaseSensitive bool `json:"case_sensitive"`

	// WholeWord rejects matches embedded in a longer word. The check is
	// applied per edge: an edge of the term that is a word character must
	// not touch another word character; an edge that is punctuation or
	// space is not checked.
	WholeWord bool `json:"whole_word"`
}

// FindAll returns the non-overlapping occurrences of term in text, in
// document order.
func FindAll(text, term string, opts FindOptions) []Match {
	tr := []rune(text)
	pr := []rune(term)
	n := len(pr)
	if n == 0 || n > len(tr) {
		return nil
	}
	checkLeft := opts.WholeWord && isWordRune(pr[0])
	checkRight := opts.WholeWord && isWordRune(pr[n-1])

	var out []Match
	for i := 0; i+n <= len(tr); {
		if !equalAt(tr[i:i+n], pr, opts.CaseSensitive) {
			i++
			continue
		}
		if (checkLeft && i > 0 && isWordRune(tr[i-1])) || (checkRight && i+n < len(tr) && isWordRune(tr[i+n])) {
			i++
			continue
		}
		out = append(out, Match{Index: i, Length: n})
		i += n
	}
	return out
}

func equalAt(a, b []rune, caseSensitive bool) bool {
	for i := range b {
		if a[i] == b[i] {
			continue
		}
		if caseSensitive || unicode.ToLower(a[i]) != unicode.ToLower(b[i]) {
			return false
		}
	}
	return true
}

// Replace replaces every occurrence of term and returns the new text and
// the number of replacements.
func Replace(text, term, repl string, opts FindOptions) (string, int) {
	matches := FindAll(text, term, opts)
	if len(matches) == 0 {
		return text, 0
	}
	return replaceMatches(text, matches, func(Match) string { return repl }), len(matches)
}

// replaceMatches rebuilds text with each match substituted by fn(match).
// matches must be sorted and non-overlapping.
func replaceMatches(text string, matches []Match, fn func(Match) string) string {
	r := []rune(text)
	var out []rune
	prev := 0
	for _, m := range matches {
		out = append(out, r[prev:m.Index]...)
		out = append(out, []rune(fn(m))...)
		prev = m.End()
	}
	out = append(out, r[prev:]...)
	return string(out)
}

// ReplaceAt replaces the rune range of m with repl.
func ReplaceAt(text string, m Match, repl string) string {
	return spliceRunes(text, m.Index, m.End(), repl)
}
