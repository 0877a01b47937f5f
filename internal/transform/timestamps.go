package transform

import (
	"math"

	"github.com/MrWong99/scribe/internal/document"
	"github.com/MrWong99/scribe/pkg/timestamp"
)

// ShiftTimestamps adds delta seconds to every timestamp token that starts
// inside sel. Shifted values are clamped at zero and re-rendered in canonical
// form; unparseable tokens are left alone.
func ShiftTimestamps(text string, sel document.Selection, delta float64) (string, error) {
	if err := checkSelection(sel); err != nil {
		return "", err
	}
	var matches []Match
	var repl []string
	for _, tok := range timestamp.FindAll(text) {
		if tok.Position < sel.Index || tok.Position >= sel.End() || math.IsNaN(tok.Seconds) {
			continue
		}
		start, length := tok.ClockRange()
		matches = append(matches, Match{Index: start, Length: length})
		repl = append(repl, timestamp.Format(max(0, tok.Seconds+delta)))
	}
	if len(matches) == 0 {
		return text, nil
	}
	i := 0
	return replaceMatches(text, matches, func(Match) string {
		s := repl[i]
		i++
		return s
	}), nil
}
