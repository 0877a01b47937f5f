package suggest_test

import (
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/MrWong99/scribe/internal/suggest"
)

func process(e *suggest.Engine, text string) suggest.Result {
	e.MarkTrigger()
	return e.Process(text, utf8.RuneCountInString(text))
}

func TestFragmentGate(t *testing.T) {
	t.Parallel()

	e := suggest.New()
	if res := process(e, "the re"); len(res.Suggestions) != 0 || e.Active() {
		t.Fatalf("two-rune fragment produced suggestions: %v", res.Suggestions)
	}

	res := process(e, "the rec")
	if len(res.Suggestions) == 0 {
		t.Fatal("three-rune fragment produced no suggestions")
	}
	for _, s := range res.Suggestions {
		if strings.EqualFold(s, "rec") {
			t.Errorf("suggestions contain the fragment itself: %v", res.Suggestions)
		}
	}
}

func TestProcessWithoutTriggerDismisses(t *testing.T) {
	t.Parallel()

	e := suggest.New()
	process(e, "the rec")
	if !e.Active() {
		t.Fatal("expected open suggestions")
	}
	if res := e.Process("the rec", 3); len(res.Suggestions) != 0 || res.Expansion != nil {
		t.Errorf("cursor movement produced %+v", res)
	}
	if e.Active() {
		t.Error("suggestions still open after untriggered process")
	}
}

func TestShortcutExpansion(t *testing.T) {
	t.Parallel()

	e := suggest.New()
	res := process(e, "hello [ov")
	if res.Expansion == nil {
		t.Fatal("expected shortcut expansion")
	}
	want := suggest.Edit{Index: 6, Length: 3, Text: "[overlapping conversation] "}
	if *res.Expansion != want {
		t.Errorf("Expansion = %+v, want %+v", *res.Expansion, want)
	}
	if len(res.Suggestions) != 0 {
		t.Errorf("expansion also produced suggestions: %v", res.Suggestions)
	}

	custom := suggest.New(suggest.WithShortcuts(map[string]string{"QQ": "[question]"}))
	if res := process(custom, "[qq"); res.Expansion == nil || res.Expansion.Text != "[question] " {
		t.Errorf("custom shortcut: %+v", res)
	}
	if res := process(custom, "[ov"); res.Expansion != nil {
		t.Errorf("replaced shortcut table still expanded ov: %+v", res.Expansion)
	}
}

func TestCommit(t *testing.T) {
	t.Parallel()

	e := suggest.New(
		suggest.WithPhrases([]string{"for the record", "recording"}),
		suggest.WithTranscriptWords(false),
	)
	res := process(e, "we need the recor")
	if want := []string{"recording", "for the record"}; !slices.Equal(res.Suggestions, want) {
		t.Fatalf("Suggestions = %v, want %v", res.Suggestions, want)
	}

	e.Previous()
	if e.Highlighted() != 1 {
		t.Errorf("Previous from first = %d, want 1 (wrap)", e.Highlighted())
	}
	e.Next()
	if e.Highlighted() != 0 {
		t.Errorf("Next from last = %d, want 0 (wrap)", e.Highlighted())
	}

	edit, ok := e.Commit(0)
	if !ok {
		t.Fatal("Commit(0) not ok")
	}
	if want := (suggest.Edit{Index: 12, Length: 5, Text: "recording "}); edit != want {
		t.Errorf("Commit = %+v, want %+v", edit, want)
	}
	if edit.Caret() != 22 {
		t.Errorf("Caret = %d, want 22", edit.Caret())
	}
	if e.Active() {
		t.Error("suggestions still open after commit")
	}
	if _, ok := e.Commit(0); ok {
		t.Error("Commit after dismiss should fail")
	}
}

func TestVocabulary(t *testing.T) {
	t.Parallel()

	got := suggest.Vocabulary("cat Cat dog Dog dog ant an 2024 ant")
	want := []string{"dog", "ant", "cat"}
	if !slices.Equal(got, want) {
		t.Errorf("Vocabulary = %v, want %v", got, want)
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fragment string
		pool     []string
		want     []string
	}{
		{"excludes fragment", "record", []string{"record", "Record", "recording"}, []string{"recording"}},
		{"transposition", "recrod", []string{"recording"}, []string{"recording"}},
		{"inner word start", "motio", []string{"second the motion"}, []string{"second the motion"}},
		{"bracket tag", "inaud", []string{"[inaudible]"}, []string{"[inaudible]"}},
		{"unrelated", "zzz", []string{"recording"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := suggest.Match(tt.fragment, tt.pool, 5); !slices.Equal(got, tt.want) {
				t.Errorf("Match(%q) = %v, want %v", tt.fragment, got, tt.want)
			}
		})
	}
}

func TestLimit(t *testing.T) {
	t.Parallel()

	pool := []string{"recall", "recant", "recap", "recede", "receipt", "receive"}
	if got := suggest.Match("rec", pool, 2); len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}
