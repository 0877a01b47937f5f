// Package suggest implements type-ahead completion for the transcript
// editor: fuzzy completion of the word being typed against a ranked pool of
// domain phrases and transcript vocabulary, and expansion of two-letter
// bracket shortcuts into annotation tags.
//
// Matching runs in two stages. A candidate qualifies when some word start
// inside it has a prefix within a small Damerau-Levenshtein distance of the
// typed fragment (one edit for short fragments, two for longer ones), or when
// that prefix sounds the same under Double Metaphone. Qualified candidates
// are then ranked by Jaro-Winkler similarity, exact prefixes first, with the
// pool order (phrases, then vocabulary by frequency) breaking ties.
//
// An [Engine] only reacts to input that was flagged with [Engine.MarkTrigger]
// (a character insertion or a paste). Processing without the flag dismisses
// any open suggestions, so moving the cursor never pops up completions.
//
// Engine is not safe for concurrent use; the editor serialises access.
package suggest

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// MinFragment is the number of runes that must be typed before fuzzy
// completion starts.
const MinFragment = 3

const defaultLimit = 5

// DefaultShortcuts maps two-letter bracket codes to annotation tags.
var DefaultShortcuts = map[string]string{
	"ov": "[overlapping conversation]",
	"in": "[inaudible]",
	"ct": "[crosstalk]",
	"la": "[laughter]",
	"un": "[unintelligible]",
	"bn": "[background noise]",
	"pa": "[pause]",
	"mu": "[music]",
	"ap": "[applause]",
	"ph": "[phonetic]",
}

// DefaultPhrases is the built-in meeting and legal boilerplate pool.
var DefaultPhrases = []string{
	"for the record",
	"off the record",
	"back on the record",
	"let the record reflect",
	"objection, form",
	"objection, foundation",
	"asked and answered",
	"no further questions",
	"point of order",
	"motion to adjourn",
	"second the motion",
	"all in favor",
	"any opposed",
	"the motion carries",
	"approval of the minutes",
	"[inaudible]",
	"[crosstalk]",
	"[overlapping conversation]",
	"[unintelligible]",
	"[laughter]",
}

// Edit replaces the rune range [Index, Index+Length) of the document with
// Text.
type Edit struct {
	Index  int
	Length int
	Text   string
}

// Caret returns the cursor position just after the inserted text.
func (e Edit) Caret() int { return e.Index + utf8.RuneCountInString(e.Text) }

// Result is the outcome of [Engine.Process]. At most one of Expansion and
// Suggestions is set.
type Result struct {
	Expansion   *Edit
	Suggestions []string
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithPhrases replaces the built-in phrase pool.
func WithPhrases(phrases []string) Option {
	return func(e *Engine) {
		e.phrases = slices.Clone(phrases)
	}
}

// WithShortcuts replaces the built-in bracket shortcuts. Codes are matched
// case-insensitively.
func WithShortcuts(shortcuts map[string]string) Option {
	return func(e *Engine) {
		e.shortcuts = make(map[string]string, len(shortcuts))
		for code, tag := range shortcuts {
			e.shortcuts[strings.ToLower(code)] = tag
		}
	}
}

// WithTranscriptWords enables or disables completion from words already in
// the document. Default: enabled.
func WithTranscriptWords(enabled bool) Option {
	return func(e *Engine) {
		e.transcriptWords = enabled
	}
}

// WithLimit caps the number of suggestions offered. Default: 5.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// Engine holds the suggestion state of one editing session.
type Engine struct {
	phrases         []string
	shortcuts       map[string]string
	transcriptWords bool
	limit           int

	trigger   bool
	items     []string
	highlight int
	fragStart int
	fragLen   int
}

// New returns an [Engine] configured with the supplied options.
func New(opts ...Option) *Engine {
	e := &Engine{
		phrases:         slices.Clone(DefaultPhrases),
		transcriptWords: true,
		limit:           defaultLimit,
	}
	WithShortcuts(DefaultShortcuts)(e)
	for _, o := range opts {
		o(e)
	}
	return e
}

// Configure applies opts to a live engine and dismisses open suggestions.
func (e *Engine) Configure(opts ...Option) {
	for _, o := range opts {
		o(e)
	}
	e.Dismiss()
}

// MarkTrigger flags that the next [Engine.Process] call follows a character
// insertion or paste.
func (e *Engine) MarkTrigger() { e.trigger = true }

// Process reacts to the document state after an edit. The trigger flag is
// always cleared. Without it, open suggestions are dismissed.
func (e *Engine) Process(text string, cursor int) Result {
	triggered := e.trigger
	e.trigger = false
	e.Dismiss()
	if !triggered {
		return Result{}
	}

	runes := []rune(text)
	cursor = max(0, min(cursor, len(runes)))

	if edit, ok := e.expand(runes, cursor); ok {
		return Result{Expansion: &edit}
	}

	start := cursor
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	if cursor-start < MinFragment {
		return Result{}
	}
	fragment := string(runes[start:cursor])

	pool := e.phrases
	if e.transcriptWords {
		pool = mergePool(pool, Vocabulary(text))
	}
	e.items = Match(fragment, pool, e.limit)
	e.fragStart, e.fragLen = start, cursor-start
	return Result{Suggestions: slices.Clone(e.items)}
}

func (e *Engine) expand(runes []rune, cursor int) (Edit, bool) {
	if cursor < 3 || runes[cursor-3] != '[' {
		return Edit{}, false
	}
	code := strings.ToLower(string(runes[cursor-2 : cursor]))
	tag, ok := e.shortcuts[code]
	if !ok {
		return Edit{}, false
	}
	return Edit{Index: cursor - 3, Length: 3, Text: tag + " "}, true
}

// Suggestions returns the open suggestions.
func (e *Engine) Suggestions() []string { return slices.Clone(e.items) }

// Active reports whether suggestions are open.
func (e *Engine) Active() bool { return len(e.items) > 0 }

// Highlighted returns the index of the highlighted suggestion.
func (e *Engine) Highlighted() int { return e.highlight }

// Next moves the highlight down, wrapping to the first suggestion.
func (e *Engine) Next() {
	if n := len(e.items); n > 0 {
		e.highlight = (e.highlight + 1) % n
	}
}

// Previous moves the highlight up, wrapping to the last suggestion.
func (e *Engine) Previous() {
	if n := len(e.items); n > 0 {
		e.highlight = (e.highlight - 1 + n) % n
	}
}

// Commit returns the edit that replaces the typed fragment with suggestion i
// followed by a space, and dismisses the suggestions. ok is false when i is
// out of range.
func (e *Engine) Commit(i int) (edit Edit, ok bool) {
	if i < 0 || i >= len(e.items) {
		return Edit{}, false
	}
	edit = Edit{Index: e.fragStart, Length: e.fragLen, Text: e.items[i] + " "}
	e.Dismiss()
	return edit, true
}

// Dismiss closes the suggestions.
func (e *Engine) Dismiss() {
	e.items = nil
	e.highlight = 0
	e.fragStart, e.fragLen = 0, 0
}

// Vocabulary returns the distinct words of text with at least
// [MinFragment] runes, most frequent first, ties broken alphabetically.
// Each word is reported in the casing of its first occurrence.
func Vocabulary(text string) []string {
	type entry struct {
		word  string
		key   string
		count int
	}
	index := make(map[string]*entry)
	var entries []*entry
	for _, w := range strings.FieldsFunc(text, func(r rune) bool { return !isWordRune(r) }) {
		if utf8.RuneCountInString(w) < MinFragment || isNumber(w) {
			continue
		}
		key := strings.ToLower(w)
		if en, ok := index[key]; ok {
			en.count++
			continue
		}
		en := &entry{word: w, key: key, count: 1}
		index[key] = en
		entries = append(entries, en)
	}
	slices.SortFunc(entries, func(a, b *entry) int {
		if a.count != b.count {
			return b.count - a.count
		}
		return strings.Compare(a.key, b.key)
	})
	out := make([]string, len(entries))
	for i, en := range entries {
		out[i] = en.word
	}
	return out
}

// Match returns up to limit candidates from pool that fuzzily complete
// fragment, best first. Candidates equal to the fragment (ignoring case) are
// never returned.
func Match(fragment string, pool []string, limit int) []string {
	lf := strings.ToLower(fragment)
	n := utf8.RuneCountInString(lf)
	if n == 0 {
		return nil
	}
	tolerance := 1
	if n > 4 {
		tolerance = 2
	}
	fragCode, _ := matchr.DoubleMetaphone(lf)

	type scored struct {
		text  string
		score float64
	}
	var hits []scored
	for _, cand := range pool {
		lc := strings.ToLower(cand)
		if lc == lf || strings.TrimSpace(lc) == "" {
			continue
		}
		if score, ok := matchCandidate(lf, n, tolerance, fragCode, lc); ok {
			hits = append(hits, scored{text: cand, score: score})
		}
	}
	slices.SortStableFunc(hits, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.text
	}
	return out
}

// matchCandidate compares the fragment against prefixes of every word start
// of the lower-cased candidate.
func matchCandidate(lf string, n, tolerance int, fragCode, lc string) (float64, bool) {
	rc := []rune(lc)
	best := -1.0
	for ws := range rc {
		if ws > 0 && isWordRune(rc[ws-1]) || !isWordRune(rc[ws]) {
			continue
		}
		for l := max(1, n-1); l <= n+1 && ws+l <= len(rc); l++ {
			prefix := string(rc[ws : ws+l])
			d := matchr.DamerauLevenshtein(lf, prefix)
			phonetic := false
			if d > tolerance {
				code, _ := matchr.DoubleMetaphone(prefix)
				phonetic = fragCode != "" && code == fragCode
				if !phonetic {
					continue
				}
			}
			score := matchr.JaroWinkler(lf, prefix, false)
			if d == 0 {
				score += 1
			}
			if ws == 0 {
				score += 0.25
			}
			if score > best {
				best = score
			}
		}
	}
	return best, best >= 0
}

// mergePool appends the words not already present (ignoring case).
func mergePool(phrases, words []string) []string {
	seen := make(map[string]struct{}, len(phrases)+len(words))
	out := make([]string, 0, len(phrases)+len(words))
	for _, list := range [][]string{phrases, words} {
		for _, s := range list {
			k := strings.ToLower(s)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isNumber(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
}
