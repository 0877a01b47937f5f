package editor

import (
	"errors"

	"github.com/MrWong99/scribe/internal/multiedit"
	"github.com/MrWong99/scribe/internal/transform"
)

// EnterMultiEdit starts editing every whole-word occurrence of the selected
// text at once. It fails with transform.ErrEmptySelection without a
// selection and with multiedit.ErrNoOccurrences when the term does not
// occur as a whole word.
func (e *Editor) EnterMultiEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sel, ok := e.buf.Selection()
	if !ok || sel.Length == 0 {
		return e.failLocked(transform.ErrEmptySelection)
	}
	term := e.buf.Slice(sel.Index, sel.Length)
	e.exitMultiLocked()
	e.sugg.Dismiss()

	s, err := multiedit.Enter(e.buf, term)
	if err != nil {
		if errors.Is(err, multiedit.ErrNoOccurrences) {
			return e.failLocked(err)
		}
		return err
	}
	e.multi = s
	e.notifyLocked(LevelInfo, pluralize(len(s.Cursors()), "occurrence")+" of \""+term+"\"")
	return nil
}

// ExitMultiEdit leaves multi-edit mode. Edits were applied live, so there
// is nothing to commit.
func (e *Editor) ExitMultiEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exitMultiLocked()
}

func (e *Editor) exitMultiLocked() {
	if e.multi == nil {
		return
	}
	e.multi.Exit()
	e.multi = nil
}

// MultiEditActive reports whether multi-edit mode is on.
func (e *Editor) MultiEditActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.multi != nil
}

// Carets returns the live caret of every occurrence in multi-edit mode.
func (e *Editor) Carets() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.multi == nil {
		return nil
	}
	return e.multi.Carets()
}

// Suggestions returns the open completions and the highlighted index.
func (e *Editor) Suggestions() ([]string, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sugg.Suggestions(), e.sugg.Highlighted()
}

// CommitSuggestion replaces the typed fragment with suggestion i.
func (e *Editor) CommitSuggestion(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitLocked(i)
}

func (e *Editor) commitLocked(i int) error {
	ed, ok := e.sugg.Commit(i)
	if !ok {
		return ErrNoSuggestion
	}
	e.applyEditLocked(ed)
	return nil
}
