package editor

import (
	"fmt"

	"github.com/MrWong99/scribe/internal/document"
	"github.com/MrWong99/scribe/internal/transform"
)

// Each transformation rewrites the document in one SetText call, so it is a
// single undo step. Selection-scoped ones fail with
// transform.ErrEmptySelection instead of falling back to the whole
// document.

// Capitalize capitalizes the first letter after speaker labels, sentence
// ends and line starts.
func (e *Editor) Capitalize() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.capitalizeLocked()
}

func (e *Editor) capitalizeLocked() bool {
	return e.applyLocked(transform.Capitalize(e.buf.Text()))
}

// FixParagraphs merges paragraphs that stop mid-sentence with the text that
// completes the sentence.
func (e *Editor) FixParagraphs() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked(transform.FixParagraphs(e.buf.Text()))
}

// JoinSelected joins the selected paragraphs into the first one.
func (e *Editor) JoinSelected() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transformLocked(func(text string) (string, error) {
		return transform.JoinSelected(text, e.liveSelectionLocked())
	})
}

// JoinSameSpeaker joins consecutive selected paragraphs of the same speaker.
func (e *Editor) JoinSameSpeaker() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transformLocked(func(text string) (string, error) {
		return transform.JoinSameSpeaker(text, e.liveSelectionLocked())
	})
}

// RemoveActiveListening drops selected paragraphs that only contain an
// acknowledgement such as "Okay." unless they answer a question.
func (e *Editor) RemoveActiveListening() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cues := e.settings.ActiveListeningCues
	return e.transformLocked(func(text string) (string, error) {
		return transform.RemoveActiveListening(text, e.liveSelectionLocked(), cues)
	})
}

// RemoveFillers deletes the configured filler words from the whole
// document.
func (e *Editor) RemoveFillers() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked(transform.RemoveFillers(e.buf.Text(), e.settings.Fillers))
}

// ShiftTimestamps adds delta seconds to every timestamp in the selection.
func (e *Editor) ShiftTimestamps(delta float64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transformLocked(func(text string) (string, error) {
		return transform.ShiftTimestamps(text, e.liveSelectionLocked(), delta)
	})
}

// SwapSpeakers exchanges labels a and b inside the last selection.
func (e *Editor) SwapSpeakers(a, b string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transformLocked(func(text string) (string, error) {
		return transform.SwapSpeakers(text, e.lastSelectionLocked(), a, b)
	})
}

// ReplaceSpeaker replaces label from with to inside the last selection.
func (e *Editor) ReplaceSpeaker(from, to string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transformLocked(func(text string) (string, error) {
		return transform.ReplaceSpeaker(text, e.lastSelectionLocked(), from, to)
	})
}

// Snippets returns the earliest paragraphs of each speaker, capped at the
// configured snippet count.
func (e *Editor) Snippets() []transform.SpeakerSnippets {
	e.mu.Lock()
	defer e.mu.Unlock()
	return transform.ExtractSnippets(e.buf.Text(), e.settings.SnippetCount)
}

// PlaySnippet plays s on the media player.
func (e *Editor) PlaySnippet(s transform.Snippet) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.player.PlayRange(s.Start, s.Duration()); err != nil {
		return e.failLocked(fmt.Errorf("editor: play snippet of %s: %w", s.Speaker, err))
	}
	return nil
}

// StopPlayback stops the media player.
func (e *Editor) StopPlayback() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.player.Stop()
}

func (e *Editor) transformLocked(fn func(text string) (string, error)) (bool, error) {
	out, err := fn(e.buf.Text())
	if err != nil {
		return false, e.failLocked(err)
	}
	return e.applyLocked(out), nil
}

// liveSelectionLocked returns the live selection; without focus it is
// empty, which the transformations reject.
func (e *Editor) liveSelectionLocked() document.Selection {
	sel, _ := e.buf.Selection()
	return sel
}

func (e *Editor) lastSelectionLocked() document.Selection {
	if !e.hasLastSel {
		return document.Selection{}
	}
	return e.lastSel
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
