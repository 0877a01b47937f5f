package editor

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/MrWong99/scribe/internal/document"
	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/internal/validate"
	"github.com/MrWong99/scribe/pkg/timestamp"
)

const (
	modeFull     = "full"
	modeViewport = "viewport"
)

// Target is the position a navigation step moved to.
type Target struct {
	Index   int `json:"index"`
	Length  int `json:"length"`
	Ordinal int `json:"ordinal"`
	Total   int `json:"total"`
}

// ValidateAll scans the whole document and marks every timestamp that is
// out of chronological order.
func (e *Editor) ValidateAll(ctx context.Context) validate.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateFullLocked(ctx)
}

// ValidateViewport validates every timestamp against its global neighbours
// but marks only those in the estimated visible range. Without usable
// viewport geometry it falls back to [Editor.ValidateAll].
func (e *Editor) ValidateViewport(ctx context.Context) validate.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateViewportLocked(ctx)
}

// Scroll records the viewport geometry reported by the view. With
// continuous validation on, a windowed pass is scheduled.
func (e *Editor) Scroll(vp validate.Viewport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewport = &vp
	if e.settings.ContinuousValidation && e.validateLater != nil {
		e.validateLater.Trigger()
	}
}

// SetContinuousValidation turns re-validation after edits and scrolling on
// or off. Turning it off cancels a pending pass.
func (e *Editor) SetContinuousValidation(ctx context.Context, on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.ContinuousValidation = on
	e.setContinuousLocked(ctx, on)
}

func (e *Editor) setContinuousLocked(ctx context.Context, on bool) {
	if !on {
		if e.validateLater != nil {
			e.validateLater.Cancel()
		}
		return
	}
	e.validateViewportLocked(ctx)
}

// ContinuousValidation reports whether continuous validation is on.
func (e *Editor) ContinuousValidation() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.ContinuousValidation
}

func (e *Editor) validateFullLocked(ctx context.Context) validate.Result {
	start := time.Now()
	res := validate.Full(e.buf.Text())
	e.markLocked(res, modeFull)
	e.recordValidation(ctx, modeFull, start, res)
	return res
}

func (e *Editor) validateViewportLocked(ctx context.Context) validate.Result {
	if e.viewport == nil {
		return e.validateFullLocked(ctx)
	}
	window, err := e.estimator.Estimate(e.buf.Len(), *e.viewport)
	if err != nil {
		if !errors.Is(err, validate.ErrNoGeometry) {
			observe.Logger(ctx).Warn("editor: viewport estimate failed", "doc_id", e.id, "err", err)
		}
		return e.validateFullLocked(ctx)
	}
	start := time.Now()
	res := validate.Windowed(e.buf.Text(), window)
	e.markLocked(res, modeViewport)
	e.recordValidation(ctx, modeViewport, start, res)
	return res
}

func (e *Editor) recordValidation(ctx context.Context, mode string, start time.Time, res validate.Result) {
	if e.metrics != nil {
		e.metrics.RecordValidation(ctx, mode, time.Since(start), len(res.Invalid))
	}
}

// markLocked redraws the invalid-timestamp markers from res.
func (e *Editor) markLocked(res validate.Result, mode string) {
	e.buf.ClearFormat(0, e.buf.Len(), validate.MarkKey)
	for _, m := range res.Marks {
		e.buf.FormatRange(m.Index, m.Length, document.Attributes{validate.MarkKey: validate.MarkColor})
	}
	e.markMode = mode
}

// remarkLocked repeats the last validation pass after a full-text rewrite.
func (e *Editor) remarkLocked() {
	switch e.markMode {
	case modeFull:
		e.validateFullLocked(context.Background())
	case modeViewport:
		e.validateViewportLocked(context.Background())
	}
}

// NextInvalid selects the next out-of-order timestamp, wrapping around.
func (e *Editor) NextInvalid() (Target, bool) {
	return e.navigate(&e.invalidNav, validate.Check, true)
}

// PreviousInvalid selects the previous out-of-order timestamp.
func (e *Editor) PreviousInvalid() (Target, bool) {
	return e.navigate(&e.invalidNav, validate.Check, false)
}

// NextRepeatedSpeaker selects the next paragraph whose speaker equals the
// speaker of the paragraph before it.
func (e *Editor) NextRepeatedSpeaker() (Target, bool) {
	return e.navigate(&e.repeatedNav, validate.RepeatedSpeakers, true)
}

// PreviousRepeatedSpeaker is the reverse of [Editor.NextRepeatedSpeaker].
func (e *Editor) PreviousRepeatedSpeaker() (Target, bool) {
	return e.navigate(&e.repeatedNav, validate.RepeatedSpeakers, false)
}

// NextBlank selects the next blank placeholder.
func (e *Editor) NextBlank() (Target, bool) {
	return e.navigate(&e.blankNav, validate.Blanks, true)
}

// PreviousBlank selects the previous blank placeholder.
func (e *Editor) PreviousBlank() (Target, bool) {
	return e.navigate(&e.blankNav, validate.Blanks, false)
}

// navigate rebuilds the target set from the current text on every call. The
// navigator is only reset when the set of positions changed, so repeated
// calls on an unchanged document keep cycling.
func (e *Editor) navigate(nav *validate.Navigator, set func([]timestamp.Token) []int, forward bool) (Target, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tokens := timestamp.FindAll(e.buf.Text())
	idx := set(tokens)
	positions := make([]int, len(idx))
	for i, j := range idx {
		positions[i] = tokens[j].Position
	}
	if !slices.Equal(positions, nav.Positions()) {
		nav.Reset(positions)
	}

	var pos int
	var ok bool
	if forward {
		pos, ok = nav.Next()
	} else {
		pos, ok = nav.Previous()
	}
	if !ok {
		return Target{}, false
	}
	tok := tokens[idx[nav.Current()]]
	e.selectLocked(pos, tok.Length)
	e.scrollLocked(pos)
	return Target{Index: pos, Length: tok.Length, Ordinal: nav.Current(), Total: nav.Len()}, true
}
