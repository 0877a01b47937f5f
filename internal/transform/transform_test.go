package transform_test

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/MrWong99/scribe/internal/document"
	"github.com/MrWong99/scribe/internal/transform"
)

func all(text string) document.Selection {
	return document.Selection{Index: 0, Length: utf8.RuneCountInString(text)}
}

func TestCapitalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, in, want string
	}{
		{"after prefix", "0:00:01.0 S1: hello", "0:00:01.0 S1: Hello"},
		{"after sentence", "Hello there. how are you? fine! ok", "Hello there. How are you? Fine! Ok"},
		{"line start", "first\nsecond", "First\nSecond"},
		{"decimal untouched", "it cost 3.50 dollars", "It cost 3.50 dollars"},
		{"already capitalized", "0:00:01.0 S1: Fine.", "0:00:01.0 S1: Fine."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := transform.Capitalize(tt.in); got != tt.want {
				t.Errorf("Capitalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFixParagraphs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, in, want string
	}{
		{
			name: "merge head and keep remainder",
			in:   "0:00:01.0 S1: So I went to the\n\n0:00:03.0 S2: Store. Then I left.\n\n0:00:05.0 S1: Okay.",
			want: "0:00:01.0 S1: So I went to the store.\n\n0:00:03.0 S2: Then I left.\n\n0:00:05.0 S1: Okay.",
		},
		{
			name: "no terminator merges to end",
			in:   "0:00:01.0 S1: hello\n0:00:02.0 S2: World and\n0:00:03.0 S1: More",
			want: "0:00:01.0 S1: hello world and more",
		},
		{
			name: "pronoun and acronym keep case",
			in:   "0:00:01.0 S1: then\n0:00:02.0 S1: I left.\n0:00:03.0 S1: we saw\n0:00:04.0 S1: NASA there.",
			want: "0:00:01.0 S1: then I left.\n0:00:03.0 S1: we saw NASA there.",
		},
		{
			name: "unlabeled remainder stays unlabeled",
			in:   "0:00:01.0 S1: I went to the\nStore. Then left.",
			want: "0:00:01.0 S1: I went to the store.\nThen left.",
		},
		{
			name: "already sound",
			in:   "0:00:01.0 S1: Done.\n\n0:00:02.0 S2: Yes!",
			want: "0:00:01.0 S1: Done.\n\n0:00:02.0 S2: Yes!",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := transform.FixParagraphs(tt.in)
			if got != tt.want {
				t.Fatalf("FixParagraphs:\n got %q\nwant %q", got, tt.want)
			}
			if again := transform.FixParagraphs(got); again != got {
				t.Errorf("FixParagraphs not idempotent:\n first %q\nsecond %q", got, again)
			}
		})
	}
}

func TestJoins(t *testing.T) {
	t.Parallel()

	text := "0:00:01.0 S1: a\n\n0:00:02.0 S1: b\n\n0:00:03.0 S2: c"

	got, err := transform.JoinSelected(text, all(text))
	if err != nil {
		t.Fatalf("JoinSelected: %v", err)
	}
	if want := "0:00:01.0 S1: a b c"; got != want {
		t.Errorf("JoinSelected = %q, want %q", got, want)
	}

	got, err = transform.JoinSameSpeaker(text, all(text))
	if err != nil {
		t.Fatalf("JoinSameSpeaker: %v", err)
	}
	if want := "0:00:01.0 S1: a b\n\n0:00:03.0 S2: c"; got != want {
		t.Errorf("JoinSameSpeaker = %q, want %q", got, want)
	}

	withPlain := "0:00:01.0 S1: a\nloose line\n0:00:03.0 S2: c"
	got, err = transform.JoinSameSpeaker(withPlain, all(withPlain))
	if err != nil {
		t.Fatalf("JoinSameSpeaker: %v", err)
	}
	if want := "0:00:01.0 S1: a loose line\n0:00:03.0 S2: c"; got != want {
		t.Errorf("JoinSameSpeaker unlabeled = %q, want %q", got, want)
	}
}

func TestSelectionScopedRequireSelection(t *testing.T) {
	t.Parallel()

	text := "0:00:01.0 S1: a"
	empty := document.Selection{Index: 3}
	ops := map[string]func() (string, error){
		"JoinSelected":          func() (string, error) { return transform.JoinSelected(text, empty) },
		"JoinSameSpeaker":       func() (string, error) { return transform.JoinSameSpeaker(text, empty) },
		"RemoveActiveListening": func() (string, error) { return transform.RemoveActiveListening(text, empty, []string{"okay."}) },
		"ShiftTimestamps":       func() (string, error) { return transform.ShiftTimestamps(text, empty, 1) },
		"SwapSpeakers":          func() (string, error) { return transform.SwapSpeakers(text, empty, "S1", "S2") },
		"ReplaceSpeaker":        func() (string, error) { return transform.ReplaceSpeaker(text, empty, "S1", "S2") },
	}
	for name, op := range ops {
		if _, err := op(); !errors.Is(err, transform.ErrEmptySelection) {
			t.Errorf("%s: err = %v, want ErrEmptySelection", name, err)
		}
	}
}

func TestRemoveActiveListening(t *testing.T) {
	t.Parallel()

	text := "0:00:01.0 S1: Did you see it?\n\n" +
		"0:00:02.0 S2: Yeah.\n\n" +
		"0:00:03.0 S1: It was big.\n\n" +
		"0:00:04.0 S2: Mm-hmm.\n\n" +
		"0:00:05.0 S1: Anyway."
	got, err := transform.RemoveActiveListening(text, all(text), []string{"yeah.", "mm-hmm."})
	if err != nil {
		t.Fatalf("RemoveActiveListening: %v", err)
	}
	want := "0:00:01.0 S1: Did you see it?\n\n" +
		"0:00:02.0 S2: Yeah.\n\n" +
		"0:00:03.0 S1: It was big.\n\n" +
		"0:00:05.0 S1: Anyway."
	if got != want {
		t.Errorf("RemoveActiveListening:\n got %q\nwant %q", got, want)
	}
}

func TestRemoveFillers(t *testing.T) {
	t.Parallel()

	fillers := []string{"um", "uh"}
	tests := []struct {
		name, in, want string
	}{
		{"plain", "um, I think uh this works", "I think this works"},
		{"labeled", "0:00:01.0 S1: Uh, well um I see", "0:00:01.0 S1: well I see"},
		{"embedded words kept", "my umbrella is huge", "my umbrella is huge"},
		{"emptied line dropped", "a\n\num.\n\nb", "a\n\nb"},
		{"ellipsis after filler", "Well, um... fine", "Well, fine"},
		{"unicode ellipsis", "So uh… yes", "So yes"},
		{"non-ascii filler", "ähm, ich glaube ähm das geht", "ich glaube das geht"},
		{"non-ascii word not split", "die Ähmlichkeit bleibt", "die Ähmlichkeit bleibt"},
	}
	fillers = append(fillers, "ähm")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := transform.RemoveFillers(tt.in, fillers); got != tt.want {
				t.Errorf("RemoveFillers(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestShiftTimestamps(t *testing.T) {
	t.Parallel()

	text := "0:00:01.0 S1: a [0:00:01.5] ____\n0:00:02.5 S2: b\n0:01:00.0 S1: c"
	sel := document.Selection{Index: 0, Length: utf8.RuneCountInString("0:00:01.0 S1: a [0:00:01.5] ____\n0:00:02.5 S2: b")}
	got, err := transform.ShiftTimestamps(text, sel, -2)
	if err != nil {
		t.Fatalf("ShiftTimestamps: %v", err)
	}
	want := "0:00:00.0 S1: a [0:00:00.0] ____\n0:00:00.5 S2: b\n0:01:00.0 S1: c"
	if got != want {
		t.Errorf("ShiftTimestamps:\n got %q\nwant %q", got, want)
	}
}

func TestSwapSpeakersWithinSelection(t *testing.T) {
	t.Parallel()

	text := "0:00:01.0 S1: hi\n0:00:02.0 S2: yo\n0:00:03.0 S1: hey S10"
	sel := document.Selection{Index: 0, Length: utf8.RuneCountInString("0:00:01.0 S1: hi\n0:00:02.0 S2: yo")}
	got, err := transform.SwapSpeakers(text, sel, "S1", "S2")
	if err != nil {
		t.Fatalf("SwapSpeakers: %v", err)
	}
	if want := "0:00:01.0 S2: hi\n0:00:02.0 S1: yo\n0:00:03.0 S1: hey S10"; got != want {
		t.Errorf("SwapSpeakers:\n got %q\nwant %q", got, want)
	}

	got, err = transform.ReplaceSpeaker(text, all(text), "S1", "S3")
	if err != nil {
		t.Fatalf("ReplaceSpeaker: %v", err)
	}
	if want := "0:00:01.0 S3: hi\n0:00:02.0 S2: yo\n0:00:03.0 S3: hey S10"; got != want {
		t.Errorf("ReplaceSpeaker:\n got %q\nwant %q", got, want)
	}
}

func TestExtractSnippetsCapsPerSpeaker(t *testing.T) {
	t.Parallel()

	text := "0:00:10.0 S1: ten\n" +
		"0:00:01.0 S1: one\n" +
		"0:00:02.0 S2: two\n" +
		"0:00:05.0 S1: five\n" +
		"0:00:20.0 S1: twenty\n" +
		"0:00:03.0 S1: three"
	groups := transform.ExtractSnippets(text, 3)
	if len(groups) != 2 || groups[0].Speaker != "S1" || groups[1].Speaker != "S2" {
		t.Fatalf("groups = %+v, want S1 then S2", groups)
	}
	s1 := groups[0].Snippets
	if len(s1) != 3 {
		t.Fatalf("len(S1) = %d, want 3", len(s1))
	}
	for i, want := range []float64{1, 3, 5} {
		if s1[i].Start != want {
			t.Errorf("S1[%d].Start = %v, want %v", i, s1[i].Start, want)
		}
	}
	if s1[0].Text != "one" || !s1[0].HasEnd || s1[0].End != 2 {
		t.Errorf("S1[0] = %+v, want text one ending at 2", s1[0])
	}
	if last := s1[1]; last.HasEnd || last.Duration() != 0 {
		t.Errorf("final paragraph = %+v, want open-ended", last)
	}
}

func TestExtractSnippetsSpanWholeParagraph(t *testing.T) {
	t.Parallel()

	groups := transform.ExtractSnippets("0:00:01.0 S1: a [0:00:03.0] ____ b\n0:00:10.0 S2: c [0:00:12.0] ____", 0)
	if len(groups) != 2 {
		t.Fatalf("groups = %+v, want S1 and S2", groups)
	}
	s1 := groups[0].Snippets[0]
	if s1.Start != 1 || !s1.HasEnd || s1.End != 10 || s1.Duration() != 9 {
		t.Errorf("S1 snippet = %+v, want 1 to 10", s1)
	}
	if s2 := groups[1].Snippets[0]; s2.HasEnd {
		t.Errorf("S2 snippet = %+v, want open-ended despite the trailing blank", s2)
	}
}

func TestFindAll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, text, term string
		opts             transform.FindOptions
		want             []int
	}{
		{"whole word", "the cat scattered cats; cat.", "cat", transform.FindOptions{CaseSensitive: true, WholeWord: true}, []int{4, 24}},
		{"substring", "the cat scattered cats", "cat", transform.FindOptions{CaseSensitive: true}, []int{4, 9, 18}},
		{"case folded", "Cat cat CAT", "cat", transform.FindOptions{WholeWord: true}, []int{0, 4, 8}},
		{"case sensitive", "Cat cat CAT", "cat", transform.FindOptions{CaseSensitive: true}, []int{4}},
		// Trailing punctuation edge is not boundary checked, the word edge is.
		{"mixed edges", "S1: S1:x S10:", "S1:", transform.FindOptions{CaseSensitive: true, WholeWord: true}, []int{0, 4}},
		{"leading punctuation", "x[la] [la]", "[la]", transform.FindOptions{WholeWord: true}, []int{1, 6}},
		{"runes", "über über", "über", transform.FindOptions{WholeWord: true}, []int{0, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := transform.FindAll(tt.text, tt.term, tt.opts)
			if len(got) != len(tt.want) {
				t.Fatalf("FindAll = %+v, want indices %v", got, tt.want)
			}
			for i, m := range got {
				if m.Index != tt.want[i] {
					t.Errorf("match %d at %d, want %d", i, m.Index, tt.want[i])
				}
			}
		})
	}
}

func TestReplace(t *testing.T) {
	t.Parallel()

	got, n := transform.Replace("cat sat on the cat mat", "cat", "dog", transform.FindOptions{CaseSensitive: true, WholeWord: true})
	if n != 2 || got != "dog sat on the dog mat" {
		t.Errorf("Replace = %q, %d", got, n)
	}
	if _, n := transform.Replace("abc", "zzz", "y", transform.FindOptions{}); n != 0 {
		t.Errorf("Replace without hit replaced %d", n)
	}
}
