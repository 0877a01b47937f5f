package timestamp_test

import (
	"math"
	"testing"

	"github.com/MrWong99/scribe/pkg/timestamp"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{"0:00:05", 5},
		{"1:02:03", 3723},
		{"1:02:03.25", 3723.25},
		{"2:05", 125},
		{"12:05.5", 725.5},
		{" 0:00:01.0 ", 1},
		{"1000000:00:00", 3.6e9},
	}
	for _, tc := range tests {
		got := timestamp.Parse(tc.in)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "abc", "1:2:3:4", "0:61:00", "0:00:75", "0:00:1e3", "0:00:05.", "-1:00:00", "5",
		"99999999999999999999:00:00", "99999999999999999999:00"} {
		if got := timestamp.Parse(in); !math.IsNaN(got) {
			t.Errorf("Parse(%q) = %v, want NaN", in, got)
		}
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00:00.0"},
		{5, "0:00:05.0"},
		{65.25, "0:01:05.3"},
		{3723.04, "1:02:03.0"},
		{59.96, "0:01:00.0"},
		{36000, "10:00:00.0"},
		{-4, "0:00:00.0"},
		{math.NaN(), "0:00:00.0"},
	}
	for _, tc := range tests {
		if got := timestamp.Format(tc.in); got != tc.want {
			t.Errorf("Format(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	t.Parallel()

	for s := 0.0; s < 7300; s += 13.37 {
		got := timestamp.Parse(timestamp.Format(s))
		if math.Abs(got-s) > 0.05+1e-9 {
			t.Fatalf("Parse(Format(%v)) = %v, off by more than a rounded tenth", s, got)
		}
	}
}

func TestFindAll_CanonicalFormsOnly(t *testing.T) {
	t.Parallel()

	text := "0:00:01.0 S1: We met at 10:30:00 sharp.\n" +
		"0:00:04.5 S2: Right [0:00:06.0] ____ and then.\n" +
		"the clock read 0:00:09.0 S3: not a label\n" +
		"[0:00:12.0] no blank marker\n" +
		"1:00:00.0 Sx-9: odd label"

	tokens := timestamp.FindAll(text)
	if len(tokens) != 4 {
		t.Fatalf("FindAll returned %d tokens, want 4: %+v", len(tokens), tokens)
	}

	want := []struct {
		kind    timestamp.Kind
		seconds float64
		speaker string
		text    string
	}{
		{timestamp.KindParagraph, 1, "S1", "0:00:01.0 S1:"},
		{timestamp.KindParagraph, 4.5, "S2", "0:00:04.5 S2:"},
		{timestamp.KindBlank, 6, "", "[0:00:06.0] ____"},
		{timestamp.KindParagraph, 3600, "Sx-9", "1:00:00.0 Sx-9:"},
	}
	for i, w := range want {
		got := tokens[i]
		if got.Kind != w.kind || got.Seconds != w.seconds || got.Speaker != w.speaker || got.Text != w.text {
			t.Errorf("token[%d] = %+v, want kind=%v seconds=%v speaker=%q text=%q", i, got, w.kind, w.seconds, w.speaker, w.text)
		}
	}
	for i := 1; i < len(tokens); i++ {
		if tokens[i].Position <= tokens[i-1].Position {
			t.Errorf("tokens not sorted by position at %d", i)
		}
	}
}

func TestFindAll_RunePositions(t *testing.T) {
	t.Parallel()

	text := "0:00:01.0 S1: Grüße, café [0:00:02.0] ____"
	tokens := timestamp.FindAll(text)
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(tokens))
	}
	runes := []rune(text)
	blank := tokens[1]
	if got := string(runes[blank.Position:blank.End()]); got != blank.Text {
		t.Errorf("rune slice at token = %q, want %q", got, blank.Text)
	}
	pos, n := blank.ClockRange()
	if got := string(runes[pos : pos+n]); got != "0:00:02.0" {
		t.Errorf("ClockRange slice = %q, want %q", got, "0:00:02.0")
	}
	if got := blank.Clock(); got != "0:00:02.0" {
		t.Errorf("Clock() = %q", got)
	}
}

func TestLabels(t *testing.T) {
	t.Parallel()

	text := "0:00:01.0 S2: a\n0:00:02.0 S1: b\n0:00:03.0 S2: c"
	got := timestamp.Labels(text)
	if len(got) != 2 || got[0] != "S2" || got[1] != "S1" {
		t.Errorf("Labels = %v, want [S2 S1]", got)
	}
}

func TestPrefixes(t *testing.T) {
	t.Parallel()

	if got := timestamp.ParagraphPrefix(5, "S3"); got != "0:00:05.0 S3: " {
		t.Errorf("ParagraphPrefix = %q", got)
	}
	if got := timestamp.Blank(61); got != "[0:01:01.0] ____" {
		t.Errorf("Blank = %q", got)
	}
}
