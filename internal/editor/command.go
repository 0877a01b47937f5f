package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrWong99/scribe/internal/document"
	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/internal/speaker"
	"github.com/MrWong99/scribe/internal/transform"
	"github.com/MrWong99/scribe/internal/validate"
	"github.com/MrWong99/scribe/pkg/persist"
)

// Op names an editor operation in a [Command].
type Op string

const (
	OpGetText              Op = "get_text"
	OpSetText              Op = "set_text"
	OpExport               Op = "export"
	OpUndo                 Op = "undo"
	OpRedo                 Op = "redo"
	OpSetSelection         Op = "set_selection"
	OpClick                Op = "click"
	OpKey                  Op = "key"
	OpPaste                Op = "paste"
	OpInsertTimestamp      Op = "insert_timestamp"
	OpForceInsertTimestamp Op = "force_insert_timestamp"
	OpSeekToCursor         Op = "seek_to_cursor"

	OpFind       Op = "find"
	OpReplace    Op = "replace"
	OpReplaceAll Op = "replace_all"

	OpCapitalize            Op = "capitalize"
	OpFixParagraphs         Op = "fix_paragraphs"
	OpJoinSelected          Op = "join_selected"
	OpJoinSameSpeaker       Op = "join_same_speaker"
	OpRemoveActiveListening Op = "remove_active_listening"
	OpRemoveFillers         Op = "remove_fillers"
	OpShiftTimestamps       Op = "shift_timestamps"
	OpSwapSpeakers          Op = "swap_speakers"
	OpReplaceSpeaker        Op = "replace_speaker"
	OpSnippets              Op = "snippets"
	OpPlaySnippet           Op = "play_snippet"
	OpStopPlayback          Op = "stop_playback"

	OpEnterMultiEdit Op = "enter_multi_edit"
	OpExitMultiEdit  Op = "exit_multi_edit"

	OpValidateAll             Op = "validate_all"
	OpValidateViewport        Op = "validate_viewport"
	OpScroll                  Op = "scroll"
	OpSetContinuousValidation Op = "set_continuous_validation"
	OpNextInvalid             Op = "next_invalid"
	OpPreviousInvalid         Op = "previous_invalid"
	OpNextRepeatedSpeaker     Op = "next_repeated_speaker"
	OpPreviousRepeatedSpeaker Op = "previous_repeated_speaker"
	OpNextBlank               Op = "next_blank"
	OpPreviousBlank           Op = "previous_blank"

	OpSuggestions      Op = "suggestions"
	OpCommitSuggestion Op = "commit_suggestion"

	OpSpeakers             Op = "speakers"
	OpSetSpeakerName       Op = "set_speaker_name"
	OpAddCharacteristic    Op = "add_characteristic"
	OpRemoveCharacteristic Op = "remove_characteristic"

	OpSaveVersion    Op = "save_version"
	OpVersions       Op = "versions"
	OpRestoreVersion Op = "restore_version"
	OpDeleteVersion  Op = "delete_version"

	OpTogglePanel Op = "toggle_panel"
	OpPanels      Op = "panels"
)

var (
	// ErrUnknownOp is returned by [Editor.Execute] for an unrecognised op.
	ErrUnknownOp = errors.New("editor: unknown command")

	// ErrMissingArgument is returned by [Editor.Execute] when a command
	// lacks a field its op needs.
	ErrMissingArgument = errors.New("editor: missing command argument")
)

// Command is the tagged form of an editor operation. Only the fields the op
// uses are read.
type Command struct {
	Op Op `json:"op"`

	Text        string                `json:"text,omitempty"`
	Term        string                `json:"term,omitempty"`
	Replacement string                `json:"replacement,omitempty"`
	Find        transform.FindOptions `json:"find,omitempty"`
	Index       int                   `json:"index,omitempty"`
	Length      int                   `json:"length,omitempty"`
	Split       bool                  `json:"split,omitempty"`
	Seconds     float64               `json:"seconds,omitempty"`
	From        string                `json:"from,omitempty"`
	To          string                `json:"to,omitempty"`
	Label       string                `json:"label,omitempty"`
	Name        string                `json:"name,omitempty"`
	ID          string                `json:"id,omitempty"`
	Enabled     bool                  `json:"enabled,omitempty"`
	Panel       Panel                 `json:"panel,omitempty"`
	Key         *Key                  `json:"key,omitempty"`
	Viewport    *validate.Viewport    `json:"viewport,omitempty"`
	Snippet     *transform.Snippet    `json:"snippet,omitempty"`
}

// Result is the outcome of [Editor.Execute]. Only the fields the op
// produces are set.
type Result struct {
	Op          Op                          `json:"op"`
	Changed     bool                        `json:"changed"`
	Text        string                      `json:"text,omitempty"`
	Selection   *document.Selection         `json:"selection,omitempty"`
	Match       *transform.Match            `json:"match,omitempty"`
	Count       int                         `json:"count,omitempty"`
	Invalid     []validate.Mark             `json:"invalid,omitempty"`
	Marks       []validate.Mark             `json:"marks,omitempty"`
	Target      *Target                     `json:"target,omitempty"`
	Suggestions []string                    `json:"suggestions,omitempty"`
	Highlighted int                         `json:"highlighted,omitempty"`
	Carets      []int                       `json:"carets,omitempty"`
	Speakers    []speaker.View              `json:"speakers,omitempty"`
	Versions    []persist.Version           `json:"versions,omitempty"`
	Version     *persist.Version            `json:"version,omitempty"`
	Snippets    []transform.SpeakerSnippets `json:"snippets,omitempty"`
	Panels      map[Panel]bool              `json:"panels,omitempty"`
	Enabled     bool                        `json:"enabled,omitempty"`
}

// Execute runs cmd. Every command gets a span and a latency observation.
// After mutating commands the result carries the new selection, and in
// multi-edit mode the live carets.
func (e *Editor) Execute(ctx context.Context, cmd Command) (res Result, err error) {
	ctx, span := observe.StartDocumentSpan(ctx, "editor."+string(cmd.Op), e.id)
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordCommand(ctx, string(cmd.Op), time.Since(start), err)
		}
		observe.EndSpan(span, err)
	}()

	res, err = e.dispatch(ctx, cmd)
	res.Op = cmd.Op
	if sel, ok := e.Selection(); ok {
		res.Selection = &sel
	}
	if res.Carets == nil {
		res.Carets = e.Carets()
	}
	if err != nil {
		observe.Logger(ctx).Debug("editor: command failed", "doc_id", e.id, "op", cmd.Op, "err", err)
	}
	return res, err
}

func (e *Editor) dispatch(ctx context.Context, cmd Command) (Result, error) {
	var res Result
	var err error

	switch cmd.Op {
	case OpGetText, OpExport:
		res.Text = e.Text()
	case OpSetText:
		res.Changed = e.SetText(ctx, cmd.Text)
	case OpUndo:
		res.Changed = e.Undo()
	case OpRedo:
		res.Changed = e.Redo()
	case OpSetSelection:
		e.SetSelection(cmd.Index, cmd.Length)
	case OpClick:
		e.Click(cmd.Index)
	case OpKey:
		if cmd.Key == nil {
			return res, fmt.Errorf("%w: %s needs a key", ErrMissingArgument, cmd.Op)
		}
		err = e.HandleKey(*cmd.Key)
		res.Suggestions, res.Highlighted = e.Suggestions()
	case OpPaste:
		e.Paste(cmd.Text)
		res.Suggestions, res.Highlighted = e.Suggestions()
	case OpInsertTimestamp:
		err = e.InsertTimestamp(cmd.Split)
		res.Changed = err == nil
	case OpForceInsertTimestamp:
		err = e.ForceInsertTimestamp()
		res.Changed = err == nil
	case OpSeekToCursor:
		err = e.SeekToCursor()

	case OpFind:
		var m transform.Match
		if m, err = e.Find(cmd.Term, cmd.Find); err == nil {
			res.Match = &m
		}
	case OpReplace:
		res.Changed, err = e.Replace(cmd.Term, cmd.Replacement, cmd.Find)
	case OpReplaceAll:
		res.Count, err = e.ReplaceAll(cmd.Term, cmd.Replacement, cmd.Find)
		res.Changed = res.Count > 0

	case OpCapitalize:
		res.Changed = e.Capitalize()
	case OpFixParagraphs:
		res.Changed = e.FixParagraphs()
	case OpJoinSelected:
		res.Changed, err = e.JoinSelected()
	case OpJoinSameSpeaker:
		res.Changed, err = e.JoinSameSpeaker()
	case OpRemoveActiveListening:
		res.Changed, err = e.RemoveActiveListening()
	case OpRemoveFillers:
		res.Changed = e.RemoveFillers()
	case OpShiftTimestamps:
		res.Changed, err = e.ShiftTimestamps(cmd.Seconds)
	case OpSwapSpeakers:
		res.Changed, err = e.SwapSpeakers(cmd.From, cmd.To)
	case OpReplaceSpeaker:
		res.Changed, err = e.ReplaceSpeaker(cmd.From, cmd.To)
	case OpSnippets:
		res.Snippets = e.Snippets()
	case OpPlaySnippet:
		if cmd.Snippet == nil {
			return res, fmt.Errorf("%w: %s needs a snippet", ErrMissingArgument, cmd.Op)
		}
		err = e.PlaySnippet(*cmd.Snippet)
	case OpStopPlayback:
		err = e.StopPlayback()

	case OpEnterMultiEdit:
		err = e.EnterMultiEdit()
	case OpExitMultiEdit:
		e.ExitMultiEdit()

	case OpValidateAll:
		v := e.ValidateAll(ctx)
		res.Invalid, res.Marks = invalidMarks(v), v.Marks
	case OpValidateViewport:
		v := e.ValidateViewport(ctx)
		res.Invalid, res.Marks = invalidMarks(v), v.Marks
	case OpScroll:
		if cmd.Viewport == nil {
			return res, fmt.Errorf("%w: %s needs a viewport", ErrMissingArgument, cmd.Op)
		}
		e.Scroll(*cmd.Viewport)
	case OpSetContinuousValidation:
		e.SetContinuousValidation(ctx, cmd.Enabled)
		res.Enabled = cmd.Enabled
	case OpNextInvalid:
		res.Target = target(e.NextInvalid())
	case OpPreviousInvalid:
		res.Target = target(e.PreviousInvalid())
	case OpNextRepeatedSpeaker:
		res.Target = target(e.NextRepeatedSpeaker())
	case OpPreviousRepeatedSpeaker:
		res.Target = target(e.PreviousRepeatedSpeaker())
	case OpNextBlank:
		res.Target = target(e.NextBlank())
	case OpPreviousBlank:
		res.Target = target(e.PreviousBlank())

	case OpSuggestions:
		res.Suggestions, res.Highlighted = e.Suggestions()
	case OpCommitSuggestion:
		err = e.CommitSuggestion(cmd.Index)
		res.Changed = err == nil

	case OpSpeakers:
		res.Speakers = e.Speakers()
	case OpSetSpeakerName:
		err = e.SetSpeakerName(ctx, cmd.Label, cmd.Name)
	case OpAddCharacteristic:
		err = e.AddCharacteristic(ctx, cmd.Label, cmd.Text)
	case OpRemoveCharacteristic:
		err = e.RemoveCharacteristic(ctx, cmd.Label, cmd.Index)

	case OpSaveVersion:
		v, added := e.SaveVersion(ctx)
		res.Version, res.Changed = &v, added
	case OpVersions:
		res.Versions = e.Versions()
	case OpRestoreVersion:
		err = e.RestoreVersion(ctx, cmd.ID)
		res.Changed = err == nil
	case OpDeleteVersion:
		err = e.DeleteVersion(ctx, cmd.ID)

	case OpTogglePanel:
		res.Enabled, err = e.TogglePanel(cmd.Panel)
	case OpPanels:
		res.Panels = e.Panels()

	default:
		return res, fmt.Errorf("%w %q", ErrUnknownOp, cmd.Op)
	}
	return res, err
}

func invalidMarks(r validate.Result) []validate.Mark {
	out := make([]validate.Mark, 0, len(r.Invalid))
	for _, t := range r.InvalidTokens() {
		out = append(out, validate.Mark{Index: t.Position, Length: t.Length})
	}
	return out
}

func target(t Target, ok bool) *Target {
	if !ok {
		return nil
	}
	return &t
}
