package editor

import (
	"unicode/utf8"

	"github.com/MrWong99/scribe/internal/document"
	"github.com/MrWong99/scribe/internal/transform"
)

// Find selects the next occurrence of term after the selection, wrapping to
// the start of the document.
func (e *Editor) Find(term string, opts transform.FindOptions) (transform.Match, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.findLocked(term, opts)
}

func (e *Editor) findLocked(term string, opts transform.FindOptions) (transform.Match, error) {
	if term == "" {
		return transform.Match{}, e.failLocked(transform.ErrEmptyTerm)
	}
	matches := transform.FindAll(e.buf.Text(), term, opts)
	if len(matches) == 0 {
		return transform.Match{}, e.failLocked(ErrNoMatch)
	}
	sel := e.cursorLocked()
	from := sel.Index
	if sel.Length > 0 {
		from = sel.End()
	}
	m := matches[0]
	for _, c := range matches {
		if c.Index >= from {
			m = c
			break
		}
	}
	e.selectLocked(m.Index, m.Length)
	e.scrollLocked(m.Index)
	return m, nil
}

// Replace replaces the selection with repl when it is an occurrence of term
// and then selects the next occurrence. When the selection is not an
// occurrence it only selects the next one. It reports whether a replacement
// happened.
func (e *Editor) Replace(term, repl string, opts transform.FindOptions) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if term == "" {
		return false, e.failLocked(transform.ErrEmptyTerm)
	}
	matches := transform.FindAll(e.buf.Text(), term, opts)
	if len(matches) == 0 {
		return false, e.failLocked(ErrNoMatch)
	}

	sel := e.cursorLocked()
	replaced := false
	for _, m := range matches {
		if m.Index == sel.Index && m.Length == sel.Length {
			e.exitMultiLocked()
			e.buf.DeleteText(m.Index, m.Length, document.SourceUser)
			e.buf.InsertText(m.Index, repl, document.SourceUser)
			e.buf.SetSelection(m.Index+utf8.RuneCountInString(repl), 0)
			replaced = true
			break
		}
	}

	if len(transform.FindAll(e.buf.Text(), term, opts)) == 0 {
		return replaced, nil
	}
	if _, err := e.findLocked(term, opts); err != nil {
		return replaced, err
	}
	return replaced, nil
}

// ReplaceAll replaces every occurrence of term in one undo step and returns
// the number of replacements.
func (e *Editor) ReplaceAll(term, repl string, opts transform.FindOptions) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if term == "" {
		return 0, e.failLocked(transform.ErrEmptyTerm)
	}
	out, n := transform.Replace(e.buf.Text(), term, repl, opts)
	if n == 0 {
		return 0, e.failLocked(ErrNoMatch)
	}
	e.applyLocked(out)
	e.notifyLocked(LevelInfo, pluralize(n, "replacement"))
	return n, nil
}
