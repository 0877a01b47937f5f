package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTranscript(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.txt")
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func TestRun_Transformations(t *testing.T) {
	const text = "0:00:01.0 S1: hello\n0:00:10.0 S2: bye"

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "shift", args: []string{"shift", "-by", "2"}, want: "0:00:03.0 S1: hello\n0:00:12.0 S2: bye\n"},
		{name: "shift range", args: []string{"shift", "-by", "-1", "-from", "20"}, want: "0:00:01.0 S1: hello\n0:00:09.0 S2: bye\n"},
		{name: "swap", args: []string{"swap", "-a", "S1", "-b", "S2"}, want: "0:00:01.0 S2: hello\n0:00:10.0 S1: bye\n"},
		{name: "export", args: []string{"export"}, want: text + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTranscript(t, text)
			var stdout, stderr bytes.Buffer
			if code := run(append(tt.args, path), &stdout, &stderr); code != 0 {
				t.Fatalf("exit code %d, stderr %s", code, stderr.String())
			}
			if got := stdout.String(); got != tt.want {
				t.Errorf("stdout = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRun_WriteBack(t *testing.T) {
	path := writeTranscript(t, "0:00:01.0 S1: hello\n")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"shift", "-w", "-by", "4", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr %s", code, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing with -w", stdout.String())
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "0:00:05.0 S1: hello\n" {
		t.Errorf("file = %q", got)
	}
}

func TestRun_Validate(t *testing.T) {
	path := writeTranscript(t, "0:00:05.0 S1: a\n0:00:02.0 S2: b\n0:00:09.0 S2: [0:00:09.5] ____")
	var stdout, stderr bytes.Buffer
	code := run([]string{"validate", path}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	out := stdout.String()
	for _, want := range []string{
		path + `:1:1: timestamp "0:00:05.0 S1:" is out of order`,
		path + `:2:1: timestamp "0:00:02.0 S2:" is out of order`,
		path + `:3:1: warning: "0:00:09.0 S2:" repeats the previous speaker`,
		path + `:3:15: warning: blank "[0:00:09.5] ____" needs text`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}

	clean := writeTranscript(t, "0:00:01.0 S1: a\n0:00:02.0 S2: b")
	stdout.Reset()
	if code := run([]string{"validate", clean}, &stdout, &stderr); code != 0 || stdout.Len() != 0 {
		t.Errorf("clean transcript: exit %d, output %q", code, stdout.String())
	}
}

func TestRun_Snippets(t *testing.T) {
	path := writeTranscript(t, "0:00:01.0 S1: one\n0:00:02.0 S2: two\n0:00:03.0 S1: three")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"snippets", "-n", "1", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "S1:\n") || !strings.Contains(out, "S2:\n") {
		t.Errorf("missing speaker headings:\n%s", out)
	}
	if strings.Contains(out, "three") {
		t.Errorf("-n 1 should list one snippet per speaker:\n%s", out)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "no command", args: nil, code: 2},
		{name: "unknown command", args: []string{"paint"}, code: 2},
		{name: "write without file", args: []string{"fix", "-w"}, code: 2},
		{name: "missing file", args: []string{"fix", filepath.Join(t.TempDir(), "nope.txt")}, code: 1},
		{name: "missing config", args: []string{"-config", filepath.Join(t.TempDir(), "nope.yaml"), "export"}, code: 1},
		{name: "shift without amount", args: []string{"shift", writeTranscript(t, "0:00:01.0 S1: a")}, code: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != tt.code {
				t.Errorf("exit code %d, want %d (stderr %s)", code, tt.code, stderr.String())
			}
		})
	}
}
