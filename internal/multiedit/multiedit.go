// Package multiedit edits every whole-word occurrence of a term at once.
//
// A [Session] places one cursor on each exact, case-sensitive, whole-word
// occurrence. The first edit at a cursor replaces the matched span; later
// edits insert or delete at the cursor's caret. Edits are applied in
// descending start order so earlier positions stay valid while later ones
// change, then every cursor is shifted by the net length change of the
// cursors before it.
package multiedit

import (
	"errors"
	"slices"
	"unicode/utf8"

	"github.com/MrWong99/scribe/internal/document"
	"github.com/MrWong99/scribe/internal/transform"
)

// OccurrenceKey is the highlight attribute marking edited occurrences.
const OccurrenceKey = "occurrence"

// OccurrenceColor is the highlight value used for [OccurrenceKey].
const OccurrenceColor = "#bfdbfe"

// ErrNoOccurrences is returned by [Enter] when the term does not occur as a
// whole word.
var ErrNoOccurrences = errors.New("multiedit: no whole-word occurrences found")

// Buffer is the subset of [document.Buffer] a session edits.
type Buffer interface {
	Text() string
	Len() int
	InsertText(index int, text string, src document.Source)
	DeleteText(index, length int, src document.Source)
	SetSelection(index, length int)
	FormatRange(index, length int, attrs document.Attributes)
	ClearFormat(index, length int, key string)
}

var _ Buffer = (*document.Buffer)(nil)

// Cursor is one edit position.
type Cursor struct {
	// Start is the rune offset of the edited region.
	Start int
	// Length is the current length of the edited region.
	Length int
	// Offset is the caret position relative to Start.
	Offset int
	// Replaced is set once the original occurrence has been overwritten.
	Replaced bool
}

// Caret returns the absolute caret position.
func (c Cursor) Caret() int { return c.Start + c.Offset }

// Session is an active multi-occurrence edit.
type Session struct {
	buf     Buffer
	term    string
	cursors []Cursor
}

// Enter starts a session on every whole-word occurrence of term.
func Enter(buf Buffer, term string) (*Session, error) {
	if term == "" {
		return nil, ErrNoOccurrences
	}
	matches := transform.FindAll(buf.Text(), term, transform.FindOptions{CaseSensitive: true, WholeWord: true})
	if len(matches) == 0 {
		return nil, ErrNoOccurrences
	}
	s := &Session{buf: buf, term: term, cursors: make([]Cursor, len(matches))}
	for i, m := range matches {
		s.cursors[i] = Cursor{Start: m.Index, Length: m.Length, Offset: m.Length}
	}
	s.sync()
	return s, nil
}

// Term returns the term the session was entered with.
func (s *Session) Term() string { return s.term }

// Cursors returns a copy of the cursors in document order.
func (s *Session) Cursors() []Cursor { return slices.Clone(s.cursors) }

// Carets returns the live caret positions in document order.
func (s *Session) Carets() []int {
	out := make([]int, len(s.cursors))
	for i, c := range s.cursors {
		out[i] = c.Caret()
	}
	return out
}

// Type inserts text at every cursor.
func (s *Session) Type(text string) {
	if text == "" {
		return
	}
	n := utf8.RuneCountInString(text)
	s.each(func(c *Cursor) (delta, self int) {
		if !c.Replaced {
			s.buf.DeleteText(c.Start, c.Length, document.SourceUser)
			s.buf.InsertText(c.Start, text, document.SourceUser)
			delta = n - c.Length
			c.Replaced, c.Length, c.Offset = true, n, n
			return delta, 0
		}
		s.buf.InsertText(c.Caret(), text, document.SourceUser)
		c.Length += n
		c.Offset += n
		return n, 0
	})
}

// Paste inserts pasted text at every cursor.
func (s *Session) Paste(text string) { s.Type(text) }

// Backspace deletes the rune before every caret.
func (s *Session) Backspace() {
	s.each(func(c *Cursor) (delta, self int) {
		switch {
		case !c.Replaced:
			s.buf.DeleteText(c.Start, c.Length, document.SourceUser)
			delta = -c.Length
			c.Replaced, c.Length, c.Offset = true, 0, 0
			return delta, 0
		case c.Offset > 0:
			s.buf.DeleteText(c.Caret()-1, 1, document.SourceUser)
			c.Length--
			c.Offset--
			return -1, 0
		case c.Start > 0:
			s.buf.DeleteText(c.Start-1, 1, document.SourceUser)
			return -1, -1
		}
		return 0, 0
	})
}

// Delete deletes the rune after every caret.
func (s *Session) Delete() {
	s.each(func(c *Cursor) (delta, self int) {
		switch {
		case !c.Replaced:
			s.buf.DeleteText(c.Start, c.Length, document.SourceUser)
			delta = -c.Length
			c.Replaced, c.Length, c.Offset = true, 0, 0
			return delta, 0
		case c.Caret() < s.buf.Len():
			s.buf.DeleteText(c.Caret(), 1, document.SourceUser)
			if c.Offset < c.Length {
				c.Length--
			}
			return -1, 0
		}
		return 0, 0
	})
}

// Exit ends the session and clears the occurrence highlighting.
func (s *Session) Exit() {
	s.buf.ClearFormat(0, s.buf.Len(), OccurrenceKey)
	s.cursors = nil
}

// each applies fn to the cursors in descending start order. fn returns the
// net length change it caused and how far its own Start moved. Afterwards
// every cursor is shifted by the changes of the cursors before it.
func (s *Session) each(fn func(c *Cursor) (delta, self int)) {
	deltas := make([]int, len(s.cursors))
	for i := len(s.cursors) - 1; i >= 0; i-- {
		c := &s.cursors[i]
		delta, self := fn(c)
		c.Start += self
		deltas[i] = delta
	}
	shift := 0
	for i := range s.cursors {
		s.cursors[i].Start += shift
		shift += deltas[i]
	}
	s.sync()
}

// sync redraws the occurrence highlights and puts the selection on the first
// caret.
func (s *Session) sync() {
	s.buf.ClearFormat(0, s.buf.Len(), OccurrenceKey)
	for _, c := range s.cursors {
		if c.Length > 0 {
			s.buf.FormatRange(c.Start, c.Length, document.Attributes{OccurrenceKey: OccurrenceColor})
		}
	}
	if len(s.cursors) > 0 {
		s.buf.SetSelection(s.cursors[0].Caret(), 0)
	}
}
