package transform

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/scribe/internal/document"
)

// closers may trail a sentence terminator.
const closers = `"'”’)`

// FixParagraphs repairs speech-to-text segmentation that splits sentences
// across paragraphs. A paragraph whose body does not end with a sentence
// terminator absorbs the following paragraphs up to and including the first
// terminator found in them. The absorbed head loses its automatic capital
// unless it is "I" or an acronym; any remainder stays a paragraph under its
// own prefix. Without a later terminator the rest of the document is merged.
//
// FixParagraphs is idempotent. When nothing needs merging the text is
// returned unchanged.
func FixParagraphs(text string) string {
	var ps []para
	for _, l := range splitLines(text) {
		if strings.TrimSpace(l.text) == "" {
			continue
		}
		ps = append(ps, parsePara(l.text))
	}

	changed := false
	for i := 0; i < len(ps); i++ {
		if ps[i].body == "" || terminated(ps[i].body) {
			continue
		}
		for i+1 < len(ps) {
			next := &ps[i+1]
			k := findTerminator(next.body)
			if k < 0 {
				ps[i].body = joinBody(ps[i].body, lowerFirst(next.body))
				ps = slices.Delete(ps, i+1, i+2)
				changed = true
				continue
			}
			head, rest := strings.TrimSpace(next.body[:k]), strings.TrimSpace(next.body[k:])
			ps[i].body = joinBody(ps[i].body, lowerFirst(head))
			if rest == "" {
				ps = slices.Delete(ps, i+1, i+2)
			} else {
				next.body = rest
			}
			changed = true
			break
		}
	}
	if !changed {
		return text
	}
	return joinParas(ps, separator(text))
}

func joinParas(ps []para, sep string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, sep)
}

func joinBody(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

// terminated reports whether body ends a sentence, ignoring closing quotes.
func terminated(body string) bool {
	s := strings.TrimRight(strings.TrimSpace(body), closers)
	r, _ := utf8.DecodeLastRuneInString(s)
	return r == '.' || r == '!' || r == '?'
}

// findTerminator returns the byte offset just past the first sentence
// terminator in body (including trailing closers) that is followed by
// whitespace or the end of the body, or -1.
func findTerminator(body string) int {
	for i, r := range body {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		for j < len(body) {
			c, size := utf8.DecodeRuneInString(body[j:])
			if !strings.ContainsRune(closers, c) {
				break
			}
			j += size
		}
		if j == len(body) {
			return j
		}
		if c, _ := utf8.DecodeRuneInString(body[j:]); unicode.IsSpace(c) {
			return j
		}
	}
	return -1
}

// JoinSelected merges every paragraph overlapping sel into the first one,
// keeping only the first paragraph's prefix.
func JoinSelected(text string, sel document.Selection) (string, error) {
	if err := checkSelection(sel); err != nil {
		return "", err
	}
	lines := splitLines(text)
	idx := selectedLines(lines, sel)
	if len(idx) < 2 {
		return text, nil
	}
	joined := parsePara(lines[idx[0]].text)
	for _, i := range idx[1:] {
		joined.body = joinBody(joined.body, parsePara(lines[i].text).body)
	}
	return spliceRunes(text, lines[idx[0]].start, lines[idx[len(idx)-1]].end, joined.String()), nil
}

// JoinSameSpeaker merges runs of consecutive selected paragraphs that carry
// the same speaker label. Unlabeled paragraphs join the group before them.
func JoinSameSpeaker(text string, sel document.Selection) (string, error) {
	if err := checkSelection(sel); err != nil {
		return "", err
	}
	lines := splitLines(text)
	idx := selectedLines(lines, sel)
	if len(idx) < 2 {
		return text, nil
	}
	var groups []para
	for _, i := range idx {
		p := parsePara(lines[i].text)
		if n := len(groups); n > 0 && (p.label == "" || p.label == groups[n-1].label) {
			groups[n-1].body = joinBody(groups[n-1].body, p.body)
			continue
		}
		groups = append(groups, p)
	}
	if len(groups) == len(idx) {
		return text, nil
	}
	return spliceRunes(text, lines[idx[0]].start, lines[idx[len(idx)-1]].end, joinParas(groups, separator(text))), nil
}

// RemoveActiveListening deletes selected paragraphs whose whole body is one
// of cues, such as "Okay." or "Mm-hmm.". A cue that answers a question (the
// paragraph before it ends with "?") is kept. Comparison ignores case and
// trailing punctuation.
func RemoveActiveListening(text string, sel document.Selection, cues []string) (string, error) {
	if err := checkSelection(sel); err != nil {
		return "", err
	}
	set := make(map[string]struct{}, len(cues))
	for _, c := range cues {
		if n := normalizeCue(c); n != "" {
			set[n] = struct{}{}
		}
	}
	lines := splitLines(text)
	selected := selectedLines(lines, sel)
	drop := make(map[int]bool)
	for _, i := range selected {
		body := parsePara(lines[i].text).body
		if _, ok := set[normalizeCue(body)]; !ok {
			continue
		}
		if prev := previousParagraph(lines, i); prev >= 0 && strings.HasSuffix(strings.TrimSpace(lines[prev].text), "?") {
			continue
		}
		drop[i] = true
		// Take the blank separator line with it.
		if i+1 < len(lines) && strings.TrimSpace(lines[i+1].text) == "" {
			drop[i+1] = true
		} else if i > 0 && i == len(lines)-1 && strings.TrimSpace(lines[i-1].text) == "" {
			drop[i-1] = true
		}
	}
	if len(drop) == 0 {
		return text, nil
	}
	kept := make([]string, 0, len(lines))
	for i, l := range lines {
		if !drop[i] {
			kept = append(kept, l.text)
		}
	}
	return strings.Join(kept, "\n"), nil
}

func previousParagraph(lines []line, i int) int {
	for j := i - 1; j >= 0; j-- {
		if strings.TrimSpace(lines[j].text) != "" {
			return j
		}
	}
	return -1
}

func normalizeCue(s string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(s), ".!?,;: "))
}
