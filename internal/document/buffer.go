// Package document implements the rich-text document model behind the
// transcript editor.
//
// A [Buffer] owns the live text, the selection, and range formatting
// (highlights). Every mutation is expressed as an index-based insert or
// delete measured in runes, so derived structures such as timestamp tokens
// and virtual cursors can be recomputed deterministically from the text.
// Highlights carry no meaning for other components; they are visual markers
// that move with the text they cover.
//
// A Buffer is not safe for concurrent use. The editor serialises access.
package document

import (
	"slices"
	"sort"
)

// Source identifies who caused a change, mirroring the rich-text editor
// convention of user/api/silent change sources.
type Source int

const (
	// SourceUser marks changes typed or pasted by the user.
	SourceUser Source = iota

	// SourceAPI marks programmatic changes (commands, transformations).
	SourceAPI

	// SourceSilent marks changes that must not notify listeners, e.g. the
	// initial load of a document.
	SourceSilent
)

// Selection is a rune range in the document. A zero Length is a caret.
type Selection struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

// End returns the rune offset just past the selection.
func (s Selection) End() int { return s.Index + s.Length }

// Attributes is a set of format attributes applied to a range, e.g.
// {"background": "#fca5a5"}. An empty value removes the attribute.
type Attributes map[string]string

// Highlight is a formatted range of the document.
type Highlight struct {
	Index  int    `json:"index"`
	Length int    `json:"length"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// ChangeKind classifies a [Change].
type ChangeKind int

const (
	ChangeInsert ChangeKind = iota
	ChangeDelete
	ChangeReplace
)

// Change describes a single text mutation delivered to listeners.
type Change struct {
	Kind   ChangeKind
	Index  int
	Text   string // inserted text for ChangeInsert and ChangeReplace
	Length int    // removed rune count for ChangeDelete and ChangeReplace
	Source Source
}

// edit is one undoable step: at index, removed was replaced by inserted.
type edit struct {
	index    int
	removed  []rune
	inserted []rune
}

func (e edit) size() int { return len(e.removed) + len(e.inserted) }

const (
	defaultMaxUndo      = 500
	defaultMaxUndoRunes = 1 << 20
)

// Option configures a [Buffer].
type Option func(*Buffer)

// WithUndoLimit caps the undo history at steps edits holding at most runes
// runes of text in total. Zero disables a limit. The newest edit is always
// kept.
func WithUndoLimit(steps, runes int) Option {
	return func(b *Buffer) {
		b.maxUndo = steps
		b.maxUndoRunes = runes
	}
}

// Buffer is the mutable document.
type Buffer struct {
	text       []rune
	sel        *Selection
	highlights []Highlight
	listeners  []func(Change)

	undo         []edit
	redo         []edit
	undoRunes    int
	maxUndo      int
	maxUndoRunes int
}

// New returns a Buffer holding text with no selection.
func New(text string, opts ...Option) *Buffer {
	b := &Buffer{
		text:         []rune(text),
		maxUndo:      defaultMaxUndo,
		maxUndoRunes: defaultMaxUndoRunes,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// OnChange registers fn to be called after every non-silent text change.
func (b *Buffer) OnChange(fn func(Change)) {
	b.listeners = append(b.listeners, fn)
}

// Text returns the full document text.
func (b *Buffer) Text() string { return string(b.text) }

// Len returns the document length in runes.
func (b *Buffer) Len() int { return len(b.text) }

// Slice returns the text of the given rune range, clamped to the document.
func (b *Buffer) Slice(index, length int) string {
	from, to := b.clampRange(index, length)
	return string(b.text[from:to])
}

// SetText replaces the whole document. It is recorded as one undo step
// covering only the span that differs, and clears all highlights, which
// refer to the old text.
func (b *Buffer) SetText(full string, src Source) {
	old := b.text
	b.text = []rune(full)
	b.highlights = nil
	if b.sel != nil {
		b.sel.Index = clamp(b.sel.Index, 0, len(b.text))
		b.sel.Length = clamp(b.sel.Length, 0, len(b.text)-b.sel.Index)
	}
	if pre, suf := affixes(old, b.text); pre+suf < max(len(old), len(b.text)) {
		b.record(edit{
			index:    pre,
			removed:  slices.Clone(old[pre : len(old)-suf]),
			inserted: slices.Clone(b.text[pre : len(b.text)-suf]),
		})
	}
	b.emit(Change{Kind: ChangeReplace, Index: 0, Text: full, Length: len(old), Source: src})
}

// InsertText inserts text at index. The index is clamped to the document.
func (b *Buffer) InsertText(index int, text string, src Source) {
	if text == "" {
		return
	}
	index = clamp(index, 0, len(b.text))
	ins := []rune(text)
	b.insert(index, ins)
	b.record(edit{index: index, inserted: ins})
	b.emit(Change{Kind: ChangeInsert, Index: index, Text: text, Source: src})
}

// DeleteText removes length runes starting at index.
func (b *Buffer) DeleteText(index, length int, src Source) {
	from, to := b.clampRange(index, length)
	if from == to {
		return
	}
	removed := b.delete(from, to)
	b.record(edit{index: from, removed: removed})
	b.emit(Change{Kind: ChangeDelete, Index: from, Length: to - from, Source: src})
}

// Selection returns the current selection. ok is false when the document has
// no focus (nothing selected and no caret).
func (b *Buffer) Selection() (sel Selection, ok bool) {
	if b.sel == nil {
		return Selection{}, false
	}
	return *b.sel, true
}

// SetSelection moves the selection, clamped to the document.
func (b *Buffer) SetSelection(index, length int) {
	from, to := b.clampRange(index, length)
	b.sel = &Selection{Index: from, Length: to - from}
}

// ClearSelection removes the selection (blur).
func (b *Buffer) ClearSelection() { b.sel = nil }

// FormatRange applies attrs to the given range. Existing values for the same
// keys inside the range are replaced; an empty value clears the key.
func (b *Buffer) FormatRange(index, length int, attrs Attributes) {
	from, to := b.clampRange(index, length)
	if from == to {
		return
	}
	for key, value := range attrs {
		b.clearKey(key, from, to)
		if value != "" {
			b.highlights = append(b.highlights, Highlight{Index: from, Length: to - from, Key: key, Value: value})
		}
	}
}

// ClearFormat removes the attribute key from the given range.
func (b *Buffer) ClearFormat(index, length int, key string) {
	from, to := b.clampRange(index, length)
	b.clearKey(key, from, to)
}

// Highlights returns the formatted ranges sorted by position.
func (b *Buffer) Highlights() []Highlight {
	out := slices.Clone(b.highlights)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// CanUndo reports whether an undo step is available.
func (b *Buffer) CanUndo() bool { return len(b.undo) > 0 }

// Undo reverts the most recent edit. It reports whether anything changed.
func (b *Buffer) Undo() bool {
	if len(b.undo) == 0 {
		return false
	}
	e := b.undo[len(b.undo)-1]
	b.undo = b.undo[:len(b.undo)-1]
	b.undoRunes -= e.size()
	b.apply(e.index, len(e.inserted), e.removed)
	b.redo = append(b.redo, e)
	return true
}

// Redo re-applies the most recently undone edit.
func (b *Buffer) Redo() bool {
	if len(b.redo) == 0 {
		return false
	}
	e := b.redo[len(b.redo)-1]
	b.redo = b.redo[:len(b.redo)-1]
	b.apply(e.index, len(e.removed), e.inserted)
	b.undo = append(b.undo, e)
	b.undoRunes += e.size()
	b.trimUndo()
	return true
}

// apply replaces n runes at index with repl and notifies as an API change.
func (b *Buffer) apply(index, n int, repl []rune) {
	if n > 0 {
		b.delete(index, index+n)
	}
	if len(repl) > 0 {
		b.insert(index, slices.Clone(repl))
	}
	if b.sel != nil {
		b.SetSelection(index+len(repl), 0)
	}
	b.emit(Change{Kind: ChangeReplace, Index: index, Text: string(repl), Length: n, Source: SourceAPI})
}

func (b *Buffer) insert(index int, ins []rune) {
	b.text = slices.Insert(b.text, index, ins...)
	n := len(ins)
	for i := range b.highlights {
		h := &b.highlights[i]
		switch {
		case index <= h.Index:
			h.Index += n
		case index < h.Index+h.Length:
			h.Length += n
		}
	}
	if b.sel != nil {
		switch {
		case index <= b.sel.Index:
			b.sel.Index += n
		case index < b.sel.End():
			b.sel.Length += n
		}
	}
}

func (b *Buffer) delete(from, to int) []rune {
	removed := slices.Clone(b.text[from:to])
	b.text = slices.Delete(b.text, from, to)
	kept := b.highlights[:0]
	for _, h := range b.highlights {
		h.Index, h.Length = shrink(h.Index, h.Length, from, to)
		if h.Length > 0 {
			kept = append(kept, h)
		}
	}
	b.highlights = kept
	if b.sel != nil {
		b.sel.Index, b.sel.Length = shrink(b.sel.Index, b.sel.Length, from, to)
	}
	return removed
}

func (b *Buffer) clearKey(key string, from, to int) {
	var out []Highlight
	for _, h := range b.highlights {
		if h.Key != key || h.Index >= to || h.Index+h.Length <= from {
			out = append(out, h)
			continue
		}
		if h.Index < from {
			out = append(out, Highlight{Index: h.Index, Length: from - h.Index, Key: h.Key, Value: h.Value})
		}
		if end := h.Index + h.Length; end > to {
			out = append(out, Highlight{Index: to, Length: end - to, Key: h.Key, Value: h.Value})
		}
	}
	b.highlights = out
}

func (b *Buffer) record(e edit) {
	b.undo = append(b.undo, e)
	b.undoRunes += e.size()
	b.redo = nil
	b.trimUndo()
}

// trimUndo drops the oldest edits until both limits hold.
func (b *Buffer) trimUndo() {
	drop := 0
	for n := len(b.undo); n-drop > 1; drop++ {
		over := (b.maxUndo > 0 && n-drop > b.maxUndo) ||
			(b.maxUndoRunes > 0 && b.undoRunes > b.maxUndoRunes)
		if !over {
			break
		}
		b.undoRunes -= b.undo[drop].size()
	}
	b.undo = slices.Delete(b.undo, 0, drop)
}

// affixes returns the lengths of the common prefix and suffix of a and b.
// They never overlap.
func affixes(a, b []rune) (pre, suf int) {
	n := min(len(a), len(b))
	for pre < n && a[pre] == b[pre] {
		pre++
	}
	for suf < n-pre && a[len(a)-1-suf] == b[len(b)-1-suf] {
		suf++
	}
	return pre, suf
}

func (b *Buffer) emit(c Change) {
	if c.Source == SourceSilent {
		return
	}
	for _, fn := range b.listeners {
		fn(c)
	}
}

func (b *Buffer) clampRange(index, length int) (int, int) {
	from := clamp(index, 0, len(b.text))
	to := clamp(index+max(length, 0), from, len(b.text))
	return from, to
}

// shrink adjusts the range [index, index+length) for the removal of
// [from, to).
func shrink(index, length, from, to int) (int, int) {
	end := index + length
	n := to - from
	switch {
	case end <= from:
		return index, length
	case index >= to:
		return index - n, length
	}
	newStart := min(index, from)
	newEnd := max(end-n, from)
	if end < to {
		newEnd = from
	}
	return newStart, max(newEnd-newStart, 0)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
