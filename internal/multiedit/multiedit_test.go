package multiedit_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/MrWong99/scribe/internal/document"
	"github.com/MrWong99/scribe/internal/multiedit"
)

func TestTypeReplacesEveryOccurrence(t *testing.T) {
	t.Parallel()

	buf := document.New("cat sat on the cat mat near cat")
	s, err := multiedit.Enter(buf, "cat")
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if got := s.Carets(); !slices.Equal(got, []int{3, 18, 31}) {
		t.Errorf("initial carets = %v", got)
	}

	s.Type("dog")
	if got, want := buf.Text(), "dog sat on the dog mat near dog"; got != want {
		t.Fatalf("after Type = %q, want %q", got, want)
	}

	s.Backspace()
	if got, want := buf.Text(), "do sat on the do mat near do"; got != want {
		t.Fatalf("after Backspace = %q, want %q", got, want)
	}
	if got := s.Carets(); !slices.Equal(got, []int{2, 16, 28}) {
		t.Errorf("carets = %v, want [2 16 28]", got)
	}
	sel, ok := buf.Selection()
	if !ok || sel.Index != 2 || sel.Length != 0 {
		t.Errorf("selection = %+v, %v; want caret at 2", sel, ok)
	}

	s.Type("ve")
	if got, want := buf.Text(), "dove sat on the dove mat near dove"; got != want {
		t.Errorf("after second Type = %q, want %q", got, want)
	}
}

func TestEnterIsWholeWordCaseSensitive(t *testing.T) {
	t.Parallel()

	buf := document.New("Cat cat cats concat cat")
	s, err := multiedit.Enter(buf, "cat")
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	starts := make([]int, 0, 2)
	for _, c := range s.Cursors() {
		starts = append(starts, c.Start)
	}
	if !slices.Equal(starts, []int{4, 20}) {
		t.Errorf("cursor starts = %v, want [4 20]", starts)
	}

	hl := buf.Highlights()
	if len(hl) != 2 || hl[0].Key != multiedit.OccurrenceKey {
		t.Errorf("highlights = %+v", hl)
	}
	s.Exit()
	if hl := buf.Highlights(); len(hl) != 0 {
		t.Errorf("highlights after Exit = %+v", hl)
	}
}

func TestEnterNoOccurrences(t *testing.T) {
	t.Parallel()

	buf := document.New("concatenate")
	if _, err := multiedit.Enter(buf, "cat"); !errors.Is(err, multiedit.ErrNoOccurrences) {
		t.Errorf("err = %v, want ErrNoOccurrences", err)
	}
	if _, err := multiedit.Enter(buf, ""); !errors.Is(err, multiedit.ErrNoOccurrences) {
		t.Errorf("empty term err = %v, want ErrNoOccurrences", err)
	}
}

func TestBackspaceFirstDeletesSpan(t *testing.T) {
	t.Parallel()

	buf := document.New("a foo b foo c")
	s, err := multiedit.Enter(buf, "foo")
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	s.Backspace()
	if got, want := buf.Text(), "a  b  c"; got != want {
		t.Fatalf("after Backspace = %q, want %q", got, want)
	}
	// Caret sits at the start of the emptied span, so the next backspace
	// eats the space before it.
	s.Backspace()
	if got, want := buf.Text(), "a b c"; got != want {
		t.Fatalf("after second Backspace = %q, want %q", got, want)
	}
	if got := s.Carets(); !slices.Equal(got, []int{1, 3}) {
		t.Errorf("carets = %v, want [1 3]", got)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	buf := document.New("x foo y foo z")
	s, err := multiedit.Enter(buf, "foo")
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	s.Delete()
	s.Delete()
	if got, want := buf.Text(), "x y z"; got != want {
		t.Errorf("after Delete x2 = %q, want %q", got, want)
	}
}

func TestPasteMatchesType(t *testing.T) {
	t.Parallel()

	buf := document.New("S1 said hi. S1 left.")
	s, err := multiedit.Enter(buf, "S1")
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	s.Paste("Alice")
	if got, want := buf.Text(), "Alice said hi. Alice left."; got != want {
		t.Errorf("after Paste = %q, want %q", got, want)
	}
}
