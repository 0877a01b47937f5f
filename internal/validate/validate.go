// Package validate indexes the timestamp tokens of a transcript and checks
// that they increase strictly in document order.
//
// A token is valid when its value is strictly greater than its predecessor's
// and strictly less than its successor's; the first and last token are only
// checked on the side that exists. Tokens whose clock does not parse (NaN)
// are always invalid and are skipped as neighbours, so one malformed value
// does not cascade into its neighbours being flagged.
//
// Results are rebuilt from the full text on every call. Nothing is patched
// incrementally, because drift between an index and the text it describes is
// worse than the cost of a linear rescan.
package validate

import (
	"github.com/MrWong99/scribe/pkg/timestamp"
)

// MarkKey is the format attribute used to mark invalid tokens.
const MarkKey = "invalid-timestamp"

// MarkColor is the background applied to invalid tokens.
const MarkColor = "#fca5a5"

// Range is a rune range [Start, End) of the document.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether pos lies inside r.
func (r Range) Contains(pos int) bool { return pos >= r.Start && pos < r.End }

// Mark is a token range that should be visually flagged.
type Mark struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

// Result is the outcome of a validation pass.
type Result struct {
	// Tokens holds every timestamp token in document order.
	Tokens []timestamp.Token

	// Invalid holds indices into Tokens of every invalid token in the whole
	// document, regardless of windowing.
	Invalid []int

	// Marks holds the ranges to flag. For a full pass this covers every
	// invalid token; for a windowed pass only those inside Window.
	Marks []Mark

	// Windowed is true when marking was restricted to Window.
	Windowed bool

	// Window is the marked range of a windowed pass.
	Window Range
}

// InvalidTokens returns the invalid tokens themselves.
func (r Result) InvalidTokens() []timestamp.Token {
	out := make([]timestamp.Token, 0, len(r.Invalid))
	for _, i := range r.Invalid {
		out = append(out, r.Tokens[i])
	}
	return out
}

// Check returns the indices of tokens that violate strict ordering.
func Check(tokens []timestamp.Token) []int {
	var invalid []int
	prev := -1 // index of the previous token with a usable value
	for i, tok := range tokens {
		if !timestamp.Valid(tok.Seconds) {
			invalid = append(invalid, i)
			continue
		}
		bad := prev >= 0 && tokens[prev].Seconds >= tok.Seconds
		if !bad {
			if next := nextValid(tokens, i+1); next >= 0 && tok.Seconds >= tokens[next].Seconds {
				bad = true
			}
		}
		if bad {
			invalid = append(invalid, i)
		}
		prev = i
	}
	return invalid
}

func nextValid(tokens []timestamp.Token, from int) int {
	for j := from; j < len(tokens); j++ {
		if timestamp.Valid(tokens[j].Seconds) {
			return j
		}
	}
	return -1
}

// Full validates the whole document and marks every invalid token.
func Full(text string) Result {
	tokens := timestamp.FindAll(text)
	invalid := Check(tokens)
	res := Result{Tokens: tokens, Invalid: invalid}
	for _, i := range invalid {
		res.Marks = append(res.Marks, Mark{Index: tokens[i].Position, Length: tokens[i].Length})
	}
	return res
}

// Windowed validates every token against its global neighbours but marks only
// the invalid tokens whose position lies inside window.
func Windowed(text string, window Range) Result {
	res := Full(text)
	res.Windowed = true
	res.Window = window
	res.Marks = res.Marks[:0]
	for _, i := range res.Invalid {
		tok := res.Tokens[i]
		if window.Contains(tok.Position) {
			res.Marks = append(res.Marks, Mark{Index: tok.Position, Length: tok.Length})
		}
	}
	return res
}

// RepeatedSpeakers returns indices of paragraph tokens whose speaker equals
// the speaker of the previous paragraph token.
func RepeatedSpeakers(tokens []timestamp.Token) []int {
	var out []int
	last := ""
	for i, tok := range tokens {
		if tok.Kind != timestamp.KindParagraph {
			continue
		}
		if last != "" && tok.Speaker == last {
			out = append(out, i)
		}
		last = tok.Speaker
	}
	return out
}

// Blanks returns indices of blank placeholder tokens.
func Blanks(tokens []timestamp.Token) []int {
	var out []int
	for i, tok := range tokens {
		if tok.Kind == timestamp.KindBlank {
			out = append(out, i)
		}
	}
	return out
}
