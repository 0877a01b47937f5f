package transform

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

var multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)

// RemoveFillers deletes every whole-word occurrence of fillers (case
// insensitive), together with the punctuation run that follows it, then
// tidies the whitespace left behind. Word edges are Unicode aware, so "ähm"
// is a filler of its own. Lines that held nothing but fillers are removed;
// paragraph prefixes are never touched.
func RemoveFillers(text string, fillers []string) string {
	words := fillerWords(fillers)
	if len(words) == 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	changed := false
	for _, l := range lines {
		p := parsePara(l)
		body := stripFillers(p.body, words)
		if body == p.body {
			out = append(out, l)
			continue
		}
		changed = true
		body = strings.TrimSpace(multiSpaceRe.ReplaceAllString(body, " "))
		body = strings.TrimLeft(body, ",;: ")
		if body == "" && p.prefix == "" {
			continue
		}
		p.body = body
		out = append(out, p.String())
	}
	if !changed {
		return text
	}
	return collapseBlankRuns(strings.Join(out, "\n"))
}

// fillerWords returns the non-empty fillers, longest first so "uh-huh" wins
// over "uh".
func fillerWords(fillers []string) []string {
	words := make([]string, 0, len(fillers))
	for _, f := range fillers {
		if f = strings.TrimSpace(f); f != "" {
			words = append(words, f)
		}
	}
	slices.SortStableFunc(words, func(a, b string) int {
		return utf8.RuneCountInString(b) - utf8.RuneCountInString(a)
	})
	return words
}

func isFillerPunct(r rune) bool {
	return strings.ContainsRune(",.;:!?…", r)
}

// stripFillers removes the filler matches of body and the punctuation run
// directly after each one.
func stripFillers(body string, words []string) string {
	br := []rune(body)
	taken := make([]bool, len(br))
	cut := false
	for _, w := range words {
		for _, m := range FindAll(body, w, FindOptions{WholeWord: true}) {
			if slices.Contains(taken[m.Index:m.End()], true) {
				continue
			}
			end := m.End()
			for end < len(br) && isFillerPunct(br[end]) && !taken[end] {
				end++
			}
			for i := m.Index; i < end; i++ {
				taken[i] = true
			}
			cut = true
		}
	}
	if !cut {
		return body
	}
	var b strings.Builder
	for i, r := range br {
		if !taken[i] {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

func collapseBlankRuns(s string) string {
	return blankRunRe.ReplaceAllString(s, "\n\n")
}
