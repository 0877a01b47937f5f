package editor

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/scribe/internal/document"
	"github.com/MrWong99/scribe/pkg/timestamp"
)

// defaultLabel is used when a paragraph is split before any labelled
// paragraph exists.
const defaultLabel = "S1"

// InsertTimestamp inserts the current playback position at the caret. With
// split the paragraph is broken at the caret and the new paragraph starts
// with a timestamp and the current speaker label; otherwise an inline blank
// placeholder is inserted. The insertion is refused with
// [ErrTimestampOutOfOrder] when the position is not strictly between the
// surrounding timestamps.
func (e *Editor) InsertTimestamp(split bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insertTimestampLocked(split, false)
}

// ForceInsertTimestamp splits the paragraph at the caret with the current
// playback position, ignoring chronological order.
func (e *Editor) ForceInsertTimestamp() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insertTimestampLocked(true, true)
}

func (e *Editor) insertTimestampLocked(split, force bool) error {
	secs := timestamp.Parse(e.player.CurrentTimestamp())
	if math.IsNaN(secs) {
		return e.failLocked(ErrNoPlaybackPosition)
	}
	e.exitMultiLocked()
	e.sugg.Dismiss()

	text := e.buf.Text()
	sel := e.cursorLocked()
	tokens := timestamp.FindAll(text)
	if !force {
		if err := checkOrder(tokens, sel.Index, secs); err != nil {
			return e.failLocked(err)
		}
	}
	if sel.Length > 0 {
		e.buf.DeleteText(sel.Index, sel.Length, document.SourceUser)
		text = e.buf.Text()
	}

	if !split {
		e.insertBlankLocked(text, sel.Index, secs)
		return nil
	}
	e.splitLocked(text, sel.Index, secs, labelAt(tokens, sel.Index))
	return nil
}

// checkOrder verifies that secs fits strictly between the nearest valid
// timestamps before and after pos.
func checkOrder(tokens []timestamp.Token, pos int, secs float64) error {
	for i := len(tokens) - 1; i >= 0; i-- {
		t := tokens[i]
		if t.Position >= pos || !timestamp.Valid(t.Seconds) {
			continue
		}
		if secs <= t.Seconds {
			return fmt.Errorf("%w: %s is not after %s", ErrTimestampOutOfOrder, timestamp.Format(secs), t.Clock())
		}
		break
	}
	for _, t := range tokens {
		if t.Position < pos || !timestamp.Valid(t.Seconds) {
			continue
		}
		if secs >= t.Seconds {
			return fmt.Errorf("%w: %s is not before %s", ErrTimestampOutOfOrder, timestamp.Format(secs), t.Clock())
		}
		break
	}
	return nil
}

// labelAt returns the speaker of the paragraph containing pos.
func labelAt(tokens []timestamp.Token, pos int) string {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Kind == timestamp.KindParagraph && tokens[i].Position < pos {
			return tokens[i].Speaker
		}
	}
	return defaultLabel
}

func (e *Editor) insertBlankLocked(text string, pos int, secs float64) {
	runes := []rune(text)
	ins := timestamp.Blank(secs)
	if pos > 0 && !isSpace(runes[pos-1]) {
		ins = " " + ins
	}
	if pos < len(runes) && !isSpace(runes[pos]) {
		ins += " "
	}
	e.buf.InsertText(pos, ins, document.SourceUser)
	e.buf.SetSelection(pos+utf8.RuneCountInString(ins), 0)
}

// splitLocked breaks the line at pos. Spaces around pos are dropped so the
// old paragraph ends cleanly and the new one starts right after its prefix.
func (e *Editor) splitLocked(text string, pos int, secs float64, label string) {
	runes := []rune(text)
	from, to := pos, pos
	for from > 0 && (runes[from-1] == ' ' || runes[from-1] == '\t') {
		from--
	}
	for to < len(runes) && (runes[to] == ' ' || runes[to] == '\t') {
		to++
	}

	ins := timestamp.ParagraphPrefix(secs, label)
	if from > 0 && runes[from-1] != '\n' {
		sep := "\n"
		if strings.Contains(text, "\n\n") {
			sep = "\n\n"
		}
		ins = sep + ins
	}
	if to > from {
		e.buf.DeleteText(from, to-from, document.SourceUser)
	}
	e.buf.InsertText(from, ins, document.SourceUser)
	e.buf.SetSelection(from+utf8.RuneCountInString(ins), 0)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

// SeekToCursor seeks the media to the timestamp at or before the caret.
func (e *Editor) SeekToCursor() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sel := e.cursorLocked()
	tokens := timestamp.FindAll(e.buf.Text())
	for i := len(tokens) - 1; i >= 0; i-- {
		t := tokens[i]
		if t.Position > sel.Index || !timestamp.Valid(t.Seconds) {
			continue
		}
		if err := e.player.Seek(t.Seconds); err != nil {
			return e.failLocked(fmt.Errorf("editor: seek to %s: %w", t.Clock(), err))
		}
		return nil
	}
	return e.failLocked(ErrNoTimestamp)
}
