package editor

import (
	"context"
	"unicode/utf8"

	"github.com/MrWong99/scribe/internal/document"
	"github.com/MrWong99/scribe/internal/suggest"
)

// Key names understood by [Editor.HandleKey]. Printable input is passed in
// Key.Text instead.
const (
	KeyEscape    = "Escape"
	KeyBackspace = "Backspace"
	KeyDelete    = "Delete"
	KeyEnter     = "Enter"
	KeyTab       = "Tab"
	KeyArrowUp   = "ArrowUp"
	KeyArrowDown = "ArrowDown"
)

// Key is one keystroke. Exactly one of Name and Text is normally set.
type Key struct {
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

// Text returns the document text.
func (e *Editor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Text()
}

// Export returns the document as plain text for download.
func (e *Editor) Export() string { return e.Text() }

// SetText replaces the whole document. The previous text is saved as a
// version first.
func (e *Editor) SetText(ctx context.Context, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if text == e.buf.Text() {
		return false
	}
	e.saveVersionLocked(ctx)
	return e.applyLocked(text)
}

// Undo reverts the last edit.
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exitMultiLocked()
	e.sugg.Dismiss()
	return e.buf.Undo()
}

// Redo re-applies the last undone edit.
func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exitMultiLocked()
	e.sugg.Dismiss()
	return e.buf.Redo()
}

// Selection returns the live selection. ok is false when the document has
// no focus.
func (e *Editor) Selection() (document.Selection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Selection()
}

// LastSelection returns the most recent non-empty selection. Speaker swap
// and replace operate on it so a dialog can take focus without losing the
// range.
func (e *Editor) LastSelection() (document.Selection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSel, e.hasLastSel
}

// SetSelection moves the selection. Non-empty selections are remembered as
// the last selection.
func (e *Editor) SetSelection(index, length int) document.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectLocked(index, length)
}

func (e *Editor) selectLocked(index, length int) document.Selection {
	e.buf.SetSelection(index, length)
	sel, _ := e.buf.Selection()
	if sel.Length > 0 {
		e.lastSel, e.hasLastSel = sel, true
	}
	return sel
}

// Click places the caret at index. It leaves multi-edit mode and closes
// suggestions without searching for new ones.
func (e *Editor) Click(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exitMultiLocked()
	e.buf.SetSelection(index, 0)
	sel, _ := e.buf.Selection()
	e.sugg.Process(e.buf.Text(), sel.Index)
}

// Paste inserts text at the caret, or at every cursor in multi-edit mode.
func (e *Editor) Paste(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.multi != nil {
		e.multi.Paste(text)
		return
	}
	e.typeLocked(text)
}

// HandleKey processes one keystroke. In multi-edit mode typing and deletion
// apply at every cursor and Escape leaves the mode. With suggestions open
// the arrow keys move the highlight, Enter or Tab commit and Escape
// dismisses.
func (e *Editor) HandleKey(k Key) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	if e.multi != nil {
		switch {
		case k.Name == KeyEscape:
			e.exitMultiLocked()
		case k.Name == KeyBackspace:
			e.multi.Backspace()
		case k.Name == KeyDelete:
			e.multi.Delete()
		case k.Name == KeyEnter:
			e.multi.Type("\n")
		case k.Text != "":
			e.multi.Type(k.Text)
		}
		return nil
	}

	if e.sugg.Active() {
		switch k.Name {
		case KeyArrowDown:
			e.sugg.Next()
			return nil
		case KeyArrowUp:
			e.sugg.Previous()
			return nil
		case KeyEnter, KeyTab:
			return e.commitLocked(e.sugg.Highlighted())
		case KeyEscape:
			e.sugg.Dismiss()
			return nil
		}
	}

	switch {
	case k.Text != "":
		e.typeLocked(k.Text)
	case k.Name == KeyEnter:
		e.insertLocked("\n")
		e.sugg.Dismiss()
	case k.Name == KeyTab:
		e.insertLocked("\t")
		e.sugg.Dismiss()
	case k.Name == KeyBackspace:
		e.deleteLocked(true)
	case k.Name == KeyDelete:
		e.deleteLocked(false)
	case k.Name == KeyEscape:
		e.sugg.Dismiss()
	}
	return nil
}

// typeLocked inserts user input and runs the suggestion engine on it.
func (e *Editor) typeLocked(text string) {
	caret := e.insertLocked(text)
	e.sugg.MarkTrigger()
	res := e.sugg.Process(e.buf.Text(), caret)
	if res.Expansion != nil {
		e.applyEditLocked(*res.Expansion)
	}
}

// insertLocked replaces the selection (or inserts at the caret) with text
// and returns the new caret.
func (e *Editor) insertLocked(text string) int {
	sel := e.cursorLocked()
	if sel.Length > 0 {
		e.buf.DeleteText(sel.Index, sel.Length, document.SourceUser)
	}
	e.buf.InsertText(sel.Index, text, document.SourceUser)
	caret := sel.Index + utf8.RuneCountInString(text)
	e.buf.SetSelection(caret, 0)
	return caret
}

func (e *Editor) deleteLocked(backward bool) {
	sel := e.cursorLocked()
	switch {
	case sel.Length > 0:
		e.buf.DeleteText(sel.Index, sel.Length, document.SourceUser)
		e.buf.SetSelection(sel.Index, 0)
	case backward && sel.Index > 0:
		e.buf.DeleteText(sel.Index-1, 1, document.SourceUser)
		e.buf.SetSelection(sel.Index-1, 0)
	case !backward:
		e.buf.DeleteText(sel.Index, 1, document.SourceUser)
	}
	// Deletion is not a trigger: this closes the suggestions.
	e.sugg.Process(e.buf.Text(), sel.Index)
}

func (e *Editor) applyEditLocked(ed suggest.Edit) {
	e.buf.DeleteText(ed.Index, ed.Length, document.SourceUser)
	e.buf.InsertText(ed.Index, ed.Text, document.SourceUser)
	e.buf.SetSelection(ed.Caret(), 0)
}

// cursorLocked returns the live selection, or a caret at the end of the
// document when nothing has focus.
func (e *Editor) cursorLocked() document.Selection {
	if sel, ok := e.buf.Selection(); ok {
		return sel
	}
	return document.Selection{Index: e.buf.Len()}
}

// applyLocked replaces the document with text as one undo step. It reports
// whether anything changed.
func (e *Editor) applyLocked(text string) bool {
	if text == e.buf.Text() {
		return false
	}
	e.exitMultiLocked()
	e.sugg.Dismiss()
	e.buf.SetText(text, document.SourceAPI)
	if e.markMode != "" {
		// SetText drops all formatting; put the markers back.
		e.remarkLocked()
	}
	return true
}
