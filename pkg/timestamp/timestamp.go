// Package timestamp implements the grammar of the timestamp tokens embedded in
// transcript text.
//
// Exactly two surface forms are recognised by [FindAll]:
//
//   - Paragraph timestamps at the start of a line, carrying a speaker label:
//     "0:01:23.4 S1: Hello there."
//   - Blank timestamps anywhere in a line, marking a span still to be
//     transcribed: "... and then [0:01:30.0] ____ happened."
//
// Clock-like digit runs anywhere else in the prose ("we met at 10:30:00")
// are never tokens. Parsing is total: input that is not a clock value yields
// NaN instead of an error, because transcript text is uncontrolled and a
// malformed value must simply drop out of ordering checks.
package timestamp

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind distinguishes the two token surface forms.
type Kind int

const (
	// KindParagraph is a line-start "H:MM:SS.f S<label>:" token.
	KindParagraph Kind = iota

	// KindBlank is an inline "[H:MM:SS.f] ____" placeholder token.
	KindBlank
)

// String returns the lower-case name of k.
func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindBlank:
		return "blank"
	}
	return "unknown"
}

// BlankMarker is the placeholder that follows a blank timestamp.
const BlankMarker = "____"

// Token is a single timestamp occurrence found in document text. Positions
// and lengths are measured in runes, matching the document buffer.
type Token struct {
	// Position is the rune offset of the first rune of the token.
	Position int

	// Length is the token length in runes.
	Length int

	// Text is the matched token text, e.g. "0:00:05.2 S1:" or "[0:00:05.2] ____".
	Text string

	// Seconds is the parsed clock value, NaN when the clock is malformed.
	Seconds float64

	// Kind is the surface form of the token.
	Kind Kind

	// Speaker is the speaker label of a paragraph token ("S1"). Empty for
	// blank tokens.
	Speaker string
}

// End returns the rune offset just past the token.
func (t Token) End() int { return t.Position + t.Length }

// Clock returns the clock part of the token text.
func (t Token) Clock() string {
	pos, n := t.clockOffset()
	r := []rune(t.Text)
	if pos+n > len(r) {
		return ""
	}
	return string(r[pos : pos+n])
}

// ClockRange returns the rune span of the clock digits in the document.
func (t Token) ClockRange() (pos, length int) {
	off, n := t.clockOffset()
	return t.Position + off, n
}

func (t Token) clockOffset() (int, int) {
	s := t.Text
	off := 0
	if t.Kind == KindBlank {
		s = strings.TrimPrefix(s, "[")
		off = 1
	}
	end := strings.IndexAny(s, " ]")
	if end < 0 {
		end = len(s)
	}
	return off, utf8.RuneCountInString(s[:end])
}

const clockPattern = `\d+:\d{2}:\d{2}(?:\.\d+)?`

// tokenRe matches both canonical forms in a single left-to-right pass so that
// results come out position-ordered. Group 1/2 belong to the paragraph form,
// group 3 to the blank form.
var tokenRe = regexp.MustCompile(`(?m)^(` + clockPattern + `) (S[^\s:]+):|\[(` + clockPattern + `)\] ` + BlankMarker)

// FindAll returns every timestamp token in text, sorted by position.
func FindAll(text string) []Token {
	matches := tokenRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tokens := make([]Token, 0, len(matches))

	// Byte offsets are converted to rune offsets incrementally; matches are
	// ordered so the scan over text is linear.
	bytePos, runePos := 0, 0
	toRune := func(b int) int {
		runePos += utf8.RuneCountInString(text[bytePos:b])
		bytePos = b
		return runePos
	}

	for _, m := range matches {
		start := toRune(m[0])
		tok := Token{
			Position: start,
			Text:     text[m[0]:m[1]],
		}
		tok.Length = utf8.RuneCountInString(tok.Text)
		if m[2] >= 0 {
			tok.Kind = KindParagraph
			tok.Seconds = Parse(text[m[2]:m[3]])
			tok.Speaker = text[m[4]:m[5]]
		} else {
			tok.Kind = KindBlank
			tok.Seconds = Parse(text[m[6]:m[7]])
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Labels returns the distinct speaker labels of all paragraph tokens in text,
// in order of first appearance.
func Labels(text string) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, t := range FindAll(text) {
		if t.Kind != KindParagraph {
			continue
		}
		if _, ok := seen[t.Speaker]; ok {
			continue
		}
		seen[t.Speaker] = struct{}{}
		labels = append(labels, t.Speaker)
	}
	return labels
}

// Parse converts a clock string to seconds. Accepted forms are H:MM:SS,
// H:MM:SS.fff, M:SS and M:SS.fff. Anything else yields NaN.
func Parse(s string) float64 {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return math.NaN()
	}

	secPart := parts[len(parts)-1]
	whole, frac, hasFrac := strings.Cut(secPart, ".")
	if len(whole) == 0 || len(whole) > 2 || !isDigits(whole) {
		return math.NaN()
	}
	if hasFrac && (frac == "" || !isDigits(frac)) {
		return math.NaN()
	}
	secs, err := strconv.ParseFloat(secPart, 64)
	if err != nil || secs >= 60 {
		return math.NaN()
	}

	var hours, minutes int
	if len(parts) == 3 {
		if !isDigits(parts[0]) || !isDigits(parts[1]) || len(parts[1]) > 2 {
			return math.NaN()
		}
		var herr, merr error
		hours, herr = strconv.Atoi(parts[0])
		minutes, merr = strconv.Atoi(parts[1])
		if herr != nil || merr != nil || minutes >= 60 {
			return math.NaN()
		}
	} else {
		if !isDigits(parts[0]) {
			return math.NaN()
		}
		var err error
		if minutes, err = strconv.Atoi(parts[0]); err != nil {
			return math.NaN()
		}
	}
	return float64(hours)*3600 + float64(minutes)*60 + secs
}

// Valid reports whether seconds is a usable clock value.
func Valid(seconds float64) bool {
	return !math.IsNaN(seconds) && !math.IsInf(seconds, 0) && seconds >= 0
}

// Format renders seconds as "H:MM:SS.f", rounded to tenths. Negative and NaN
// values render as "0:00:00.0".
func Format(seconds float64) string {
	if !Valid(seconds) {
		seconds = 0
	}
	tenths := int64(math.Round(seconds * 10))
	h := tenths / 36000
	m := tenths / 600 % 60
	s := tenths % 600
	return fmt.Sprintf("%d:%02d:%02d.%d", h, m, s/10, s%10)
}

// ParagraphPrefix renders a paragraph timestamp with its speaker label and the
// separating space: "0:00:05.0 S1: ".
func ParagraphPrefix(seconds float64, label string) string {
	return Format(seconds) + " " + label + ": "
}

// Blank renders a blank placeholder token: "[0:00:05.0] ____".
func Blank(seconds float64) string {
	return "[" + Format(seconds) + "] " + BlankMarker
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
