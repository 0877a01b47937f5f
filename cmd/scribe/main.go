// Command scribe edits timestamped transcripts.
//
// Batch commands run a single editing session over a transcript file and
// print the result, or write it back with -w:
//
//	scribe validate talk.txt
//	scribe shift -by 2.5 -w talk.txt
//	scribe swap -a S1 -b S2 talk.txt
//
// "scribe serve" starts the HTTP API with live editing sessions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MrWong99/scribe/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const usage = `usage: scribe [-config path] <command> [flags] [file]

commands:
  validate    report out-of-order timestamps, repeated speakers and blanks
  fix         merge paragraphs that stop mid-sentence
  capitalize  capitalize sentence starts
  fillers     remove filler words
  shift       shift timestamps: -by seconds [-from rune] [-to rune]
  swap        swap two speaker labels: -a S1 -b S2
  snippets    list the first paragraphs of each speaker: -n count
  export      print the transcript
  serve       run the HTTP API
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	fs := flag.NewFlagSet("scribe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "path to the YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(stderr, "scribe: config file %q not found\n", *configPath)
			} else {
				fmt.Fprintf(stderr, "scribe: %v\n", err)
			}
			return 1
		}
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	name, rest := fs.Arg(0), fs.Args()[1:]
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	if name != "serve" && level.Level() == slog.LevelInfo {
		// Session lifecycle lines are noise in batch output.
		level.Set(slog.LevelWarn)
	}
	slog.SetDefault(newLogger(stderr, level, cfg.Server.LogFormat))

	if name == "serve" {
		ctx, stop := signalContext()
		defer stop()
		return serve(ctx, *configPath, cfg, level)
	}

	cmd, ok := batchCommands[name]
	if !ok {
		fmt.Fprintf(stderr, "scribe: unknown command %q\n\n", name)
		fs.Usage()
		return 2
	}
	return runBatch(context.Background(), name, cmd, rest, cfg, stdout, stderr)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level slog.Leveler, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
