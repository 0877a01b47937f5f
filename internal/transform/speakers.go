package transform

import (
	"slices"

	"github.com/MrWong99/scribe/internal/document"
)

var labelOpts = FindOptions{CaseSensitive: true, WholeWord: true}

// ReplaceSpeaker replaces whole-word occurrences of the label from with to
// inside sel.
func ReplaceSpeaker(text string, sel document.Selection, from, to string) (string, error) {
	if err := checkSelection(sel); err != nil {
		return "", err
	}
	if from == "" || to == "" {
		return "", ErrEmptyTerm
	}
	if from == to {
		return text, nil
	}
	matches := within(FindAll(text, from, labelOpts), sel)
	if len(matches) == 0 {
		return text, nil
	}
	return replaceMatches(text, matches, func(Match) string { return to }), nil
}

// SwapSpeakers exchanges the labels a and b inside sel in a single pass, so
// every a becomes b and every b becomes a.
func SwapSpeakers(text string, sel document.Selection, a, b string) (string, error) {
	if err := checkSelection(sel); err != nil {
		return "", err
	}
	if a == "" || b == "" {
		return "", ErrEmptyTerm
	}
	if a == b {
		return text, nil
	}
	ma := within(FindAll(text, a, labelOpts), sel)
	mb := within(FindAll(text, b, labelOpts), sel)
	if len(ma)+len(mb) == 0 {
		return text, nil
	}
	isA := make(map[int]bool, len(ma))
	for _, m := range ma {
		isA[m.Index] = true
	}
	all := slices.Concat(ma, mb)
	slices.SortFunc(all, func(x, y Match) int { return x.Index - y.Index })
	all = dropOverlaps(all)
	return replaceMatches(text, all, func(m Match) string {
		if isA[m.Index] {
			return b
		}
		return a
	}), nil
}

// within keeps the matches lying entirely inside sel.
func within(ms []Match, sel document.Selection) []Match {
	out := ms[:0]
	for _, m := range ms {
		if m.Index >= sel.Index && m.End() <= sel.End() {
			out = append(out, m)
		}
	}
	return out
}

func dropOverlaps(ms []Match) []Match {
	out := ms[:0]
	end := -1
	for _, m := range ms {
		if m.Index < end {
			continue
		}
		out = append(out, m)
		end = m.End()
	}
	return out
}
