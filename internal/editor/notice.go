package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/scribe/internal/history"
	"github.com/MrWong99/scribe/internal/multiedit"
	"github.com/MrWong99/scribe/internal/speaker"
	"github.com/MrWong99/scribe/internal/transform"
	"github.com/MrWong99/scribe/pkg/media"
)

// Level is the severity of a [Notice].
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// String returns the lower-case name of l.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// MarshalJSON encodes l as its name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// Notice is a user-facing message, e.g. "Select some text first".
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives notices. Implementations must not call back into the
// editor synchronously; the editor lock is held while notifying.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(Notice)

// Notify implements [Notifier].
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Scroller is optionally implemented by a [Notifier] whose view can scroll
// a document position into the centre of the screen.
type Scroller interface {
	ScrollTo(index int)
}

// notifyLocked sends a notice. It is a no-op without a notifier.
func (e *Editor) notifyLocked(level Level, msg string) {
	slog.Debug("editor: notice", "doc_id", e.id, "level", level.String(), "message", msg)
	if e.notifier != nil {
		e.notifier.Notify(Notice{Level: level, Message: msg})
	}
}

// failLocked reports a recoverable failure to the user and returns err.
func (e *Editor) failLocked(err error) error {
	e.notifyLocked(LevelWarning, userMessage(err))
	return err
}

func (e *Editor) scrollLocked(index int) {
	if s, ok := e.notifier.(Scroller); ok {
		s.ScrollTo(index)
	}
}

// WarnStorage tells the user that storage is full. The app wires it to the
// persistence guard's quota callback, which fires inside store calls the
// editor makes with its lock held, so WarnStorage does not lock. It only
// reads fields fixed at construction.
func (e *Editor) WarnStorage(err error) {
	e.notifyLocked(LevelWarning, "Storage is full. Older versions were removed to keep your edits.")
	slog.Warn("editor: storage quota reached", "doc_id", e.id, "err", err)
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, transform.ErrEmptySelection):
		return "Select some text first."
	case errors.Is(err, transform.ErrEmptyTerm):
		return "Enter a search term first."
	case errors.Is(err, ErrNoMatch):
		return "No matches found."
	case errors.Is(err, multiedit.ErrNoOccurrences):
		return "No occurrences of the selected word were found."
	case errors.Is(err, ErrTimestampOutOfOrder):
		return "That timestamp would be out of order. Use force insert to add it anyway."
	case errors.Is(err, ErrNoPlaybackPosition), errors.Is(err, media.ErrNoMedia):
		return "No media is loaded."
	case errors.Is(err, ErrNoTimestamp):
		return "There is no timestamp before the cursor."
	case errors.Is(err, speaker.ErrUnknownLabel):
		return "That speaker does not appear in the transcript."
	case errors.Is(err, history.ErrNotFound):
		return "That version no longer exists."
	}
	return err.Error()
}
