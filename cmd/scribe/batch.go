package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/scribe/internal/config"
	"github.com/MrWong99/scribe/internal/editor"
	"github.com/MrWong99/scribe/internal/validate"
	"github.com/MrWong99/scribe/pkg/timestamp"
)

// errInvalid makes validate exit with status 1 without an error message.
var errInvalid = errors.New("transcript has invalid timestamps")

// batchEnv is what an action sees besides the editor.
type batchEnv struct {
	file string
	out  io.Writer
}

// action runs on an opened editor. It returns reported == true when it
// printed its own output; otherwise the edited transcript is printed or
// written back.
type action func(ctx context.Context, ed *editor.Editor, env batchEnv) (reported bool, err error)

// batchCommand registers its flags on fs and returns the action to run.
type batchCommand func(fs *flag.FlagSet) action

var batchCommands = map[string]batchCommand{
	"validate":   validateCommand,
	"fix":        edit(func(ed *editor.Editor) (bool, error) { return ed.FixParagraphs(), nil }),
	"capitalize": edit(func(ed *editor.Editor) (bool, error) { return ed.Capitalize(), nil }),
	"fillers":    edit(func(ed *editor.Editor) (bool, error) { return ed.RemoveFillers(), nil }),
	"shift":      shiftCommand,
	"swap":       swapCommand,
	"snippets":   snippetsCommand,
	"export": func(*flag.FlagSet) action {
		return func(context.Context, *editor.Editor, batchEnv) (bool, error) { return false, nil }
	},
}

func runBatch(ctx context.Context, name string, cmd batchCommand, args []string, cfg *config.Config, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scribe "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	write := fs.Bool("w", false, "write the result back to the file instead of printing it")
	act := cmd(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "scribe %s: expected one file, got %d\n", name, fs.NArg())
		return 2
	}
	file := fs.Arg(0)
	if *write && file == "" {
		fmt.Fprintf(stderr, "scribe %s: -w needs a file\n", name)
		return 2
	}

	text, err := readInput(file)
	if err != nil {
		fmt.Fprintf(stderr, "scribe %s: %v\n", name, err)
		return 1
	}

	ed := editor.New(file, editor.WithSettings(batchSettings(cfg.Editor)))
	if err := ed.Open(ctx, text); err != nil {
		fmt.Fprintf(stderr, "scribe %s: %v\n", name, err)
		return 1
	}
	defer ed.Close(ctx)

	reported, err := act(ctx, ed, batchEnv{file: file, out: stdout})
	switch {
	case errors.Is(err, errInvalid):
		return 1
	case err != nil:
		fmt.Fprintf(stderr, "scribe %s: %v\n", name, err)
		return 1
	case reported:
		return 0
	}

	result := ed.Export()
	if *write {
		if err := writeBack(file, result); err != nil {
			fmt.Fprintf(stderr, "scribe %s: %v\n", name, err)
			return 1
		}
		return 0
	}
	fmt.Fprint(stdout, result)
	if !strings.HasSuffix(result, "\n") {
		fmt.Fprintln(stdout)
	}
	return 0
}

// batchSettings disables the timers; a batch run is over before they fire.
func batchSettings(c config.EditorConfig) editor.Settings {
	s := editor.SettingsFromConfig(c)
	s.CapitalizeInterval = 0
	s.AutosaveInterval = 0
	s.ContinuousValidation = false
	return s
}

func readInput(file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == "" || file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8", file)
	}
	return string(data), nil
}

func writeBack(file, text string) error {
	info, err := os.Stat(file)
	if err != nil {
		return err
	}
	return os.WriteFile(file, []byte(text), info.Mode().Perm())
}

// edit adapts a whole-document transformation.
func edit(fn func(ed *editor.Editor) (bool, error)) batchCommand {
	return func(*flag.FlagSet) action {
		return func(_ context.Context, ed *editor.Editor, _ batchEnv) (bool, error) {
			_, err := fn(ed)
			return false, err
		}
	}
}

// selectRange selects [from, to) in runes; to < 0 means the end.
func selectRange(ed *editor.Editor, from, to int) {
	n := utf8.RuneCountInString(ed.Text())
	if to < 0 || to > n {
		to = n
	}
	from = min(max(from, 0), to)
	ed.SetSelection(from, to-from)
}

func shiftCommand(fs *flag.FlagSet) action {
	by := fs.Float64("by", 0, "seconds to add; negative shifts back")
	from := fs.Int("from", 0, "first rune of the shifted range")
	to := fs.Int("to", -1, "rune just past the shifted range; -1 for the end")
	return func(_ context.Context, ed *editor.Editor, _ batchEnv) (bool, error) {
		if *by == 0 {
			return false, errors.New("-by is required")
		}
		selectRange(ed, *from, *to)
		_, err := ed.ShiftTimestamps(*by)
		return false, err
	}
}

func swapCommand(fs *flag.FlagSet) action {
	a := fs.String("a", "", "first speaker label")
	b := fs.String("b", "", "second speaker label")
	return func(_ context.Context, ed *editor.Editor, _ batchEnv) (bool, error) {
		if *a == "" || *b == "" {
			return false, errors.New("-a and -b are required")
		}
		selectRange(ed, 0, -1)
		_, err := ed.SwapSpeakers(*a, *b)
		return false, err
	}
}

func snippetsCommand(fs *flag.FlagSet) action {
	n := fs.Int("n", 0, "snippets per speaker; 0 uses the configured count")
	return func(_ context.Context, ed *editor.Editor, env batchEnv) (bool, error) {
		if *n > 0 {
			s := ed.Settings()
			s.SnippetCount = *n
			ed.ApplySettings(s)
		}
		for _, group := range ed.Snippets() {
			fmt.Fprintf(env.out, "%s:\n", group.Speaker)
			for _, sn := range group.Snippets {
				span := timestamp.Format(sn.Start)
				if sn.HasEnd {
					span += " - " + timestamp.Format(sn.End)
				}
				fmt.Fprintf(env.out, "  %-23s %s\n", span, sn.Text)
			}
		}
		return true, nil
	}
}

func validateCommand(*flag.FlagSet) action {
	return func(ctx context.Context, ed *editor.Editor, env batchEnv) (bool, error) {
		text := ed.Text()
		res := ed.ValidateAll(ctx)
		pos := newLineIndex(text)
		name := env.file
		if name == "" {
			name = "<stdin>"
		}

		report := func(indices []int, format string) {
			for _, i := range indices {
				tok := res.Tokens[i]
				line, col := pos.at(tok.Position)
				fmt.Fprintf(env.out, "%s:%d:%d: "+format+"\n", name, line, col, tok.Text)
			}
		}
		report(res.Invalid, "timestamp %q is out of order or malformed")
		report(validate.RepeatedSpeakers(res.Tokens), "warning: %q repeats the previous speaker")
		report(validate.Blanks(res.Tokens), "warning: blank %q needs text")

		if len(res.Invalid) > 0 {
			return true, errInvalid
		}
		return true, nil
	}
}

// lineIndex maps rune offsets to 1-based line and column numbers.
type lineIndex struct {
	starts []int
}

func newLineIndex(text string) lineIndex {
	starts := []int{0}
	i := 0
	for _, r := range text {
		i++
		if r == '\n' {
			starts = append(starts, i)
		}
	}
	return lineIndex{starts: starts}
}

func (li lineIndex) at(offset int) (line, col int) {
	line = len(li.starts)
	for l, start := range li.starts {
		if start > offset {
			line = l
			break
		}
	}
	return line, offset - li.starts[line-1] + 1
}
