package transform

import (
	"math"
	"slices"
	"strings"

	"github.com/MrWong99/scribe/pkg/timestamp"
)

// Snippet is one playable paragraph of a speaker.
type Snippet struct {
	Speaker  string  `json:"speaker"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	HasEnd   bool    `json:"has_end"`
	Position int     `json:"position"`
	Text     string  `json:"text"`
}

// Duration returns the playback length, or 0 when the snippet plays on to
// the end of the media.
func (s Snippet) Duration() float64 {
	if !s.HasEnd || s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// SpeakerSnippets groups the snippets of one speaker label.
type SpeakerSnippets struct {
	Speaker  string    `json:"speaker"`
	Snippets []Snippet `json:"snippets"`
}

// ExtractSnippets returns, per speaker label in order of first appearance,
// the n earliest paragraphs by start time. A paragraph ends where the next
// paragraph timestamp begins; inline blanks inside it do not end it. n <= 0 returns every paragraph.
func ExtractSnippets(text string, n int) []SpeakerSnippets {
	tokens := timestamp.FindAll(text)
	lines := splitLines(text)

	var order []string
	groups := make(map[string][]Snippet)
	for i, tok := range tokens {
		if tok.Kind != timestamp.KindParagraph || math.IsNaN(tok.Seconds) {
			continue
		}
		s := Snippet{Speaker: tok.Speaker, Start: tok.Seconds, Position: tok.Position}
		if next, ok := nextParagraph(tokens, i); ok && !math.IsNaN(next.Seconds) {
			s.End, s.HasEnd = next.Seconds, true
		}
		s.Text = bodyAt(lines, tok.Position)
		if _, ok := groups[tok.Speaker]; !ok {
			order = append(order, tok.Speaker)
		}
		groups[tok.Speaker] = append(groups[tok.Speaker], s)
	}

	out := make([]SpeakerSnippets, 0, len(order))
	for _, label := range order {
		ss := groups[label]
		slices.SortStableFunc(ss, func(a, b Snippet) int {
			switch {
			case a.Start < b.Start:
				return -1
			case a.Start > b.Start:
				return 1
			}
			return 0
		})
		if n > 0 && len(ss) > n {
			ss = ss[:n]
		}
		out = append(out, SpeakerSnippets{Speaker: label, Snippets: ss})
	}
	return out
}

func nextParagraph(tokens []timestamp.Token, i int) (timestamp.Token, bool) {
	for _, t := range tokens[i+1:] {
		if t.Kind == timestamp.KindParagraph {
			return t, true
		}
	}
	return timestamp.Token{}, false
}

func bodyAt(lines []line, pos int) string {
	for _, l := range lines {
		if l.start == pos {
			return strings.TrimSpace(parsePara(l.text).body)
		}
	}
	return ""
}
